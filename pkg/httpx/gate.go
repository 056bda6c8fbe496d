package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
)

// Readiness is the part of lifecycle.App the gate depends on.
type Readiness interface {
	State() lifecycle.State
	Init(ctx context.Context) error
}

// ReadinessGate holds requests until the app is READY.
//
// The first request seen in SETUP starts the app; it and every request behind
// it wait for the same startup attempt. Requests arriving while the app is
// closing get 503 with Connection: close. Requests already past the gate are
// not affected by a later Close.
func ReadinessGate(app Readiness, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			state := app.State()
			switch {
			case state == lifecycle.StateReady:
				next.ServeHTTP(w, r)
				return
			case state.ShuttingDown():
				rejectUnavailable(w)
				return
			case state == lifecycle.StateSetup:
				log.WarnContext(ctx, "request received before application is ready, starting it", "path", r.URL.Path)
			}

			if err := app.Init(ctx); err != nil {
				switch {
				case ctx.Err() != nil:
					log.DebugContext(ctx, "request cancelled while waiting for readiness", "error", err)
				case errors.Is(err, lifecycle.ErrInvalidState):
					rejectUnavailable(w)
				default:
					log.ErrorContext(ctx, "application failed to become ready", "error", err)
					JSONError(w, http.StatusServiceUnavailable, startupFailedMessage)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// startupFailedMessage replaces the hook error in responses; the error is
// logged.
const startupFailedMessage = "Application failed to start"

func rejectUnavailable(w http.ResponseWriter) {
	w.Header().Set("Connection", "close")
	JSONError(w, http.StatusServiceUnavailable, lifecycle.ErrServiceUnavailable.Error())
}
