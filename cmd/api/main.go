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
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	_ "github.com/ghuser/appkit/docs/swagger"
	"github.com/ghuser/appkit/pkg/app"
	"github.com/ghuser/appkit/pkg/auth"
	"github.com/ghuser/appkit/pkg/cache"
	"github.com/ghuser/appkit/pkg/config"
	"github.com/ghuser/appkit/pkg/database"
	"github.com/ghuser/appkit/pkg/events"
	"github.com/ghuser/appkit/pkg/httpx"
	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
	"github.com/ghuser/appkit/pkg/telemetry"
	instanceApi "github.com/ghuser/appkit/services/instance/application/api"
	instanceSvcs "github.com/ghuser/appkit/services/instance/application/services"
)

// @title					appkit API
// @version				1.0
// @description			Fleet view of service instances and their lifecycle transitions.
// @license.name			MIT
// @license.url			https://opensource.org/licenses/MIT
// @host					localhost:8080
// @BasePath				/api
// @schemes				http https
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

	log := logger.New(cfg).With("service_id", cfg.ServiceInstanceID)
	// Code logging through the default slog logger shares the JSON format.
	slog.SetDefault(log.ToSlog())

	// Telemetry: OTel tracing + metrics
	ctx := context.Background()
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	// Crash reporting: Sentry (optional; log and continue on failure)
	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	// Clients are created without touching the network; the startup hooks
	// below connect them before the readiness gate lets requests through.
	pool, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure, deferred flushes are best-effort
	}

	redisClient, err := cache.Open(cfg.RedisURL)
	if err != nil {
		log.Error("failed to open redis client", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	eventBus, err := events.NewEventBus(events.Options{
		DatabaseURL: cfg.DatabaseURL,
		Forwarder:   true,
	}, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	sessionStore := auth.NewSessionStore(
		redisClient.Client(),
		[]byte(cfg.SessionAuthKey),
		[]byte(cfg.SessionEncryptionKey),
		auth.WithSecureCookie(cfg.Environment == config.EnvProduction),
		auth.WithMaxAge(cfg.SessionMaxAge),
	)

	lc := lifecycle.New(lifecycle.WithLogger(log))
	appConfig := &app.Application{
		Lifecycle:    lc,
		Db:           pool,
		Logger:       log,
		EventBus:     eventBus,
		Redis:        redisClient,
		SessionStore: sessionStore,
		ServiceName:  cfg.ServiceName,
		ServiceID:    cfg.ServiceInstanceID,
	}

	if err := registerHooks(appConfig); err != nil {
		log.Error("failed to register lifecycle hooks", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	svcs := instanceSvcs.New(appConfig)
	if err := registerObservers(appConfig, svcs); err != nil {
		log.Error("failed to register lifecycle observers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:        cfg.ServiceName,
			IsDevelopment:      cfg.Environment == config.EnvDevelopment,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		},
		logger.Middleware(log),
		logger.Recovery(log),
		telemetry.SentryMiddleware(),
		otelhttp.NewMiddleware(cfg.ServiceName),
	)

	r.Get(cfg.HealthPath, httpx.HealthHandler(lc, httpx.HealthInfo{
		ServiceID:   cfg.ServiceInstanceID,
		Version:     cfg.ServiceVersion,
		ReleaseID:   cfg.ServiceName + "@" + cfg.ServiceVersion,
		Description: cfg.ServiceName,
	}))
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Route("/api", func(r chi.Router) {
		r.Use(httpx.ReadinessGate(lc, log))

		session := auth.NewSessionHandler(sessionStore, cfg.OperatorToken, log)
		r.Post("/session", session.Login)
		r.Delete("/session", session.Logout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(sessionStore, log))
			r.Get("/session", session.Whoami)
			registerRoutes(r, svcs)
		})
	})

	srv := httpx.NewServer(cfg.HTTPAddr, r)

	// Registered last so it runs first: the app is already CLOSING, so new
	// requests get 503 while in-flight ones drain, then the clients close.
	if err := lc.OnClose("http-server", srv.Shutdown); err != nil {
		log.Error("failed to register server shutdown", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Start eagerly; a failure leaves the app in SETUP and the next gated
	// request retries.
	if err := lc.Start(); err != nil {
		log.Error("failed to start application", "error", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-quit:
		log.Info("shutting down...", "signal", sig.String())
	case err := <-serveErr:
		log.Error("server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := lc.Close(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", "error", err)
		exitCode = 1
	}
	log.Info("server stopped")
	if exitCode != 0 {
		os.Exit(exitCode) //nolint:gocritic
	}
}

// registerHooks connects the clients on startup and closes them on shutdown,
// in reverse order.
func registerHooks(a *app.Application) error {
	lc := a.Lifecycle
	return errors.Join(
		lc.OnInit("database", a.Db.Ping),
		lc.OnClose("database", func(context.Context) error { return a.Db.Close() }),

		lc.OnInit("redis", a.Redis.Ping),
		lc.OnClose("redis", func(context.Context) error { return a.Redis.Close() }),

		lc.OnInit("events", func(ctx context.Context) error {
			if err := a.EventBus.Ping(ctx); err != nil {
				return err
			}
			return a.EventBus.StartForwarder(ctx)
		}),
		lc.OnClose("events", func(context.Context) error { return a.EventBus.Close() }),
	)
}

// registerObservers records this process's transitions in the fleet view and
// exports them as metrics and Sentry events.
func registerObservers(a *app.Application, svcs *instanceSvcs.Services) error {
	metrics, err := telemetry.NewLifecycleMetrics(otel.GetMeterProvider(), a.ServiceID)
	if err != nil {
		return err
	}
	recorder := instanceSvcs.NewTransitionRecorder(svcs.Instance, a.ServiceName, a.ServiceID, a.Logger)

	a.Lifecycle.Subscribe(metrics.Observe)
	a.Lifecycle.Subscribe(telemetry.HookFailureReporter(nil, a.ServiceID))
	a.Lifecycle.Subscribe(recorder.Observe)
	return nil
}

// registerRoutes mounts all service routes under /api.
// Add each new service's route function here.
func registerRoutes(r chi.Router, svcs *instanceSvcs.Services) {
	instanceApi.InstanceRoutes(r, svcs)
}
