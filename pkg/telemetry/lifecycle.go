package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ghuser/appkit/pkg/lifecycle"
)

const meterName = "github.com/ghuser/appkit/pkg/lifecycle"

// LifecycleMetrics exports the lifecycle state machine as OTel instruments:
//
//	lifecycle.state        gauge, current state as its ordinal (0 SETUP .. 4 CLOSED)
//	lifecycle.transitions  counter, one per transition, labelled from/to/failed
type LifecycleMetrics struct {
	state       atomic.Int32
	transitions metric.Int64Counter
	attrs       []attribute.KeyValue
}

// NewLifecycleMetrics registers the instruments on mp. Subscribe Observe to
// the App to feed them.
func NewLifecycleMetrics(mp metric.MeterProvider, serviceID string) (*LifecycleMetrics, error) {
	meter := mp.Meter(meterName)
	m := &LifecycleMetrics{
		attrs: []attribute.KeyValue{attribute.String("service.instance.id", serviceID)},
	}

	var err error
	m.transitions, err = meter.Int64Counter("lifecycle.transitions",
		metric.WithDescription("Lifecycle state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.transitions counter: %w", err)
	}

	_, err = meter.Int64ObservableGauge("lifecycle.state",
		metric.WithDescription("Current lifecycle state (0 SETUP, 1 READYING, 2 READY, 3 CLOSING, 4 CLOSED)"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(m.state.Load()), metric.WithAttributes(m.attrs...))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.state gauge: %w", err)
	}
	return m, nil
}

// Observe implements lifecycle.Observer.
func (m *LifecycleMetrics) Observe(t lifecycle.Transition) {
	m.state.Store(int32(t.To))
	attrs := append([]attribute.KeyValue{
		attribute.String("from", t.From.String()),
		attribute.String("to", t.To.String()),
		attribute.Bool("failed", t.Err != nil),
	}, m.attrs...)
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// HookFailureReporter returns a lifecycle.Observer that sends failed startup
// and shutdown hooks to Sentry. A nil hub uses the global hub, which no-ops
// until SetupSentry has run with a DSN.
func HookFailureReporter(hub *sentry.Hub, serviceID string) lifecycle.Observer {
	return func(t lifecycle.Transition) {
		if t.Err == nil {
			return
		}
		h := hub
		if h == nil {
			h = sentry.CurrentHub()
		}
		h.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("lifecycle.from", t.From.String())
			scope.SetTag("lifecycle.to", t.To.String())
			scope.SetTag("service.instance.id", serviceID)

			var hookErr *lifecycle.HookFailureError
			if errors.As(t.Err, &hookErr) {
				scope.SetTag("lifecycle.phase", string(hookErr.Phase))
				hooks := make([]string, 0, len(hookErr.Failures))
				for _, f := range hookErr.Failures {
					hooks = append(hooks, f.Hook)
				}
				scope.SetContext("lifecycle", sentry.Context{"failed_hooks": hooks})
			}
			h.CaptureException(t.Err)
		})
	}
}
