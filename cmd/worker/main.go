package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/appkit/pkg/app"
	"github.com/ghuser/appkit/pkg/cache"
	"github.com/ghuser/appkit/pkg/config"
	"github.com/ghuser/appkit/pkg/events"
	"github.com/ghuser/appkit/pkg/httpx"
	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
	"github.com/ghuser/appkit/pkg/telemetry"
	instanceSvcs "github.com/ghuser/appkit/services/instance/application/services"
	instanceEvents "github.com/ghuser/appkit/services/instance/domain/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.ServiceInstanceID == "" {
		cfg.ServiceInstanceID = uuid.NewString()
	}

	log := logger.New(cfg).With("service_id", cfg.ServiceInstanceID, "component", "worker")
	// Code logging through the default slog logger shares the JSON format.
	slog.SetDefault(log.ToSlog())

	ctx := context.Background()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	eventBus, err := events.NewEventBus(events.Options{
		DatabaseURL:   cfg.DatabaseURL,
		ConsumerGroup: cfg.ConsumerGroup,
	}, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	redisClient, err := cache.Open(cfg.RedisURL)
	if err != nil {
		log.Error("failed to open redis client", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	lc := lifecycle.New(lifecycle.WithLogger(log))
	lc.Subscribe(telemetry.HookFailureReporter(nil, cfg.ServiceInstanceID))

	appConfig := &app.Application{
		Lifecycle:   lc,
		Logger:      log,
		EventBus:    eventBus,
		Redis:       redisClient,
		ServiceName: cfg.ServiceName,
		ServiceID:   cfg.ServiceInstanceID,
	}

	if err := errors.Join(
		lc.OnInit("redis", redisClient.Ping),
		lc.OnClose("redis", func(context.Context) error { return redisClient.Close() }),
		lc.OnInit("events", eventBus.Ping),
		// EventBus.Close waits up to 30s for in-flight handlers.
		lc.OnClose("events", func(context.Context) error { return eventBus.Close() }),
		lc.OnInit("subscribers", func(ctx context.Context) error { return registerSubscribers(ctx, appConfig) }),
	); err != nil {
		log.Error("failed to register lifecycle hooks", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	r := chi.NewRouter()
	r.Get(cfg.HealthPath, httpx.HealthHandler(lc, httpx.HealthInfo{
		ServiceID:   cfg.ServiceInstanceID,
		Version:     cfg.ServiceVersion,
		ReleaseID:   cfg.ServiceName + "@" + cfg.ServiceVersion,
		Description: cfg.ServiceName + " worker",
	}))
	probe := httpx.NewServer(cfg.WorkerHealthAddr, r)
	if err := lc.OnClose("health-probe", probe.Shutdown); err != nil {
		log.Error("failed to register probe shutdown", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	go func() {
		if err := probe.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health probe stopped", "error", err)
		}
	}()

	startCtx, cancelStart := context.WithCancel(ctx)
	go func() {
		// The worker has no request path to retry startup, so it retries here.
		if err := retryInit(startCtx, lc, log); err != nil {
			log.Info("startup abandoned", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancelStart()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := lc.Close(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", "error", err)
	}
	log.Info("worker stopped")
}

// registerSubscribers wires all domain event handlers. Subscriptions end when
// ctx, the lifecycle's startup context, is cancelled by Close.
// Add new topics here as more services publish events.
func registerSubscribers(ctx context.Context, a *app.Application) error {
	projector := instanceSvcs.NewInstanceProjector(cache.NewInstanceCache(a.Redis), a.Logger.Child("component", "instance-projector"))

	errCh, err := a.EventBus.Subscribe(ctx, instanceEvents.TopicLifecycleTransitioned, projector.Handle)
	if err != nil {
		return err
	}

	// Drain subscriber errors in background so the channel never blocks.
	go func() {
		for err := range errCh {
			a.Logger.ErrorContext(ctx, "subscriber error",
				"topic", instanceEvents.TopicLifecycleTransitioned,
				"error", err,
			)
		}
	}()

	a.Logger.Info("event subscribers registered", "topics", []string{instanceEvents.TopicLifecycleTransitioned})
	return nil
}
