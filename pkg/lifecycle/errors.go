package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidState is returned when a lifecycle operation is not allowed
	// in the current state, e.g. Start after Close.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrClosed is returned to readiness waiters once the app is closing.
	ErrClosed = fmt.Errorf("%w: application is shutting down", ErrInvalidState)

	// ErrServiceUnavailable is returned by the readiness gate for requests
	// arriving while the app is closing. Responses carry Connection: close.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Phase names the hook list a HookFailureError came from.
type Phase string

const (
	PhaseStartup  Phase = "startup"
	PhaseShutdown Phase = "shutdown"
)

// HookError is one failed hook.
type HookError struct {
	Hook string
	Err  error
}

func (e HookError) Error() string {
	return e.Hook + ": " + e.Err.Error()
}

func (e HookError) Unwrap() error {
	return e.Err
}

// HookFailureError aggregates failed startup or shutdown hooks.
type HookFailureError struct {
	Phase    Phase
	Failures []HookError
}

func (e *HookFailureError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s hooks failed: %s", e.Phase, strings.Join(parts, "; "))
}

// Unwrap exposes every hook error to errors.Is and errors.As.
func (e *HookFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
