// Package lifecycle governs an application's readiness.
//
//	SETUP --Start--> READYING --hooks ok--> READY
//	  ^                 |
//	  +---hook failed---+
//	any --Close--> CLOSING --shutdown hooks settled--> CLOSED
//
// Startup hooks run in registration order on a background goroutine; the
// first failure aborts the attempt and drops the app back to SETUP, so a later
// Start can retry. Shutdown hooks run in reverse registration order and every
// one of them runs regardless of earlier failures. CLOSED is terminal.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/ghuser/appkit/pkg/logger"
)

// Hook is a startup or shutdown step.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// attempt is one startup run. done closes once err is final.
type attempt struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

type closeOp struct {
	done chan struct{}
	err  error
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for transitions and hook failures.
func WithLogger(log logger.Logger) Option {
	return func(a *App) { a.log = log.Child("component", "lifecycle") }
}

// WithClock overrides time.Now for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// App is the lifecycle of one running process. The zero value is not usable;
// construct with New.
type App struct {
	mu         sync.Mutex
	state      State
	initHooks  []namedHook
	closeHooks []namedHook
	observers  []Observer
	attempt    *attempt
	closeOp    *closeOp
	// changed is closed and replaced on every transition.
	changed chan struct{}

	// pending holds transitions not yet reported; notifyMu serialises
	// reporting so observers see them in order.
	pending  []Transition
	notifyMu sync.Mutex

	baseCtx    context.Context
	cancelBase context.CancelFunc
	log        logger.Logger
	now        func() time.Time
}

// New returns an App in SETUP.
func New(opts ...Option) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		state:      StateSetup,
		changed:    make(chan struct{}),
		baseCtx:    ctx,
		cancelBase: cancel,
		log:        logger.NewWithWriter(io.Discard, "fatal"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// OnInit registers a startup hook. Hooks can only be added before the first
// startup attempt.
func (a *App) OnInit(name string, fn Hook) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.attempt != nil || a.state != StateSetup {
		return fmt.Errorf("%w: cannot add startup hook %q while %s", ErrInvalidState, name, a.state)
	}
	a.initHooks = append(a.initHooks, namedHook{name: name, fn: fn})
	return nil
}

// OnClose registers a shutdown hook. Hooks can be added until Close is called.
func (a *App) OnClose(name string, fn Hook) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.ShuttingDown() {
		return fmt.Errorf("%w: cannot add shutdown hook %q while %s", ErrInvalidState, name, a.state)
	}
	a.closeHooks = append(a.closeHooks, namedHook{name: name, fn: fn})
	return nil
}

// Subscribe registers an observer for all subsequent transitions.
func (a *App) Subscribe(o Observer) {
	a.mu.Lock()
	a.observers = append(a.observers, o)
	a.mu.Unlock()
}

// Start begins startup without waiting for it. It is a no-op while READYING
// or READY and fails with ErrInvalidState once the app is closing.
func (a *App) Start() error {
	_, err := a.start()
	return err
}

// Init starts the app if needed and waits until it is READY or the startup
// attempt it started or joined fails.
func (a *App) Init(ctx context.Context) error {
	at, err := a.start()
	if err != nil || at == nil {
		return err
	}
	select {
	case <-at.done:
		return at.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// start returns the in-flight attempt, or nil when already READY.
func (a *App) start() (*attempt, error) {
	a.mu.Lock()
	switch a.state {
	case StateReady:
		a.mu.Unlock()
		return nil, nil
	case StateReadying:
		at := a.attempt
		a.mu.Unlock()
		return at, nil
	case StateClosing, StateClosed:
		s := a.state
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot start while %s", ErrInvalidState, s)
	}

	ctx, cancel := context.WithCancel(a.baseCtx)
	at := &attempt{done: make(chan struct{}), cancel: cancel}
	a.attempt = at
	hooks := slices.Clone(a.initHooks)
	a.transitionLocked(StateReadying, nil)
	a.mu.Unlock()
	a.flush()

	go a.runStartup(ctx, at, hooks)
	return at, nil
}

// WaitForReady blocks until the app is READY. It never triggers startup by
// itself. Waiters of a failed attempt all receive its *HookFailureError;
// waiters get ErrClosed once the app starts closing.
func (a *App) WaitForReady(ctx context.Context) error {
	a.mu.Lock()
	// A failed attempt that finished before we arrived is not ours to report.
	seen := a.attempt
	for {
		switch {
		case a.state == StateReady:
			a.mu.Unlock()
			return nil
		case a.state.ShuttingDown():
			a.mu.Unlock()
			return ErrClosed
		case a.state == StateReadying || a.attempt != seen:
			// Follow the attempt itself: it may fail and be retried before we
			// would observe SETUP again.
			at := a.attempt
			a.mu.Unlock()
			select {
			case <-at.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			if at.err == nil {
				return nil
			}
			a.mu.Lock()
			closing := a.state.ShuttingDown()
			a.mu.Unlock()
			if closing {
				return ErrClosed
			}
			return at.err
		}

		ch := a.changed
		a.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		a.mu.Lock()
	}
}

// Close moves the app to CLOSING, aborts an in-flight startup, runs shutdown
// hooks in reverse order and ends in CLOSED. A *HookFailureError lists the
// shutdown hooks that failed; the app is CLOSED regardless. Repeated and
// concurrent calls return the first call's result.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if op := a.closeOp; op != nil {
		a.mu.Unlock()
		select {
		case <-op.done:
			return op.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	op := &closeOp{done: make(chan struct{})}
	a.closeOp = op
	at := a.attempt
	hooks := slices.Clone(a.closeHooks)
	a.transitionLocked(StateClosing, nil)
	a.mu.Unlock()
	a.flush()

	a.cancelBase()
	if at != nil {
		select {
		case <-at.done:
		case <-ctx.Done():
			a.log.WarnContext(ctx, "startup did not settle before shutdown deadline")
		}
	}

	var failures []HookError
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := runHook(ctx, h); err != nil {
			a.log.ErrorContext(ctx, "shutdown hook failed", "hook", h.name, "error", err)
			failures = append(failures, HookError{Hook: h.name, Err: err})
			continue
		}
		a.log.DebugContext(ctx, "shutdown hook done", "hook", h.name)
	}
	if len(failures) > 0 {
		op.err = &HookFailureError{Phase: PhaseShutdown, Failures: failures}
	}

	a.mu.Lock()
	a.transitionLocked(StateClosed, op.err)
	close(op.done)
	a.mu.Unlock()
	a.flush()
	return op.err
}

func (a *App) runStartup(ctx context.Context, at *attempt, hooks []namedHook) {
	var err error
	for _, h := range hooks {
		if ctx.Err() != nil {
			err = ErrClosed
			break
		}
		if herr := runHook(ctx, h); herr != nil {
			a.log.Error("startup hook failed", "hook", h.name, "error", herr)
			err = &HookFailureError{
				Phase:    PhaseStartup,
				Failures: []HookError{{Hook: h.name, Err: herr}},
			}
			break
		}
		a.log.Debug("startup hook done", "hook", h.name)
	}

	a.mu.Lock()
	switch {
	case a.state != StateReadying || a.attempt != at:
		// Close took over while the hooks ran.
		if err == nil {
			err = ErrClosed
		}
	case err != nil:
		at.cancel()
		a.transitionLocked(StateSetup, err)
	default:
		a.transitionLocked(StateReady, nil)
	}
	at.err = err
	close(at.done)
	a.mu.Unlock()
	a.flush()
}

// transitionLocked must be called with a.mu held. The transition is queued
// and reported to observers by the next flush.
func (a *App) transitionLocked(to State, err error) {
	t := Transition{From: a.state, To: to, At: a.now(), Err: err}
	a.state = to
	close(a.changed)
	a.changed = make(chan struct{})
	a.pending = append(a.pending, t)
}

// flush reports queued transitions in order. Call it without a.mu held.
func (a *App) flush() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()
	for {
		a.mu.Lock()
		if len(a.pending) == 0 {
			a.mu.Unlock()
			return
		}
		t := a.pending[0]
		a.pending = a.pending[1:]
		observers := slices.Clone(a.observers)
		a.mu.Unlock()
		a.report(t, observers)
	}
}

func (a *App) report(t Transition, observers []Observer) {
	if t.Err != nil {
		a.log.Warn("lifecycle transition", "from", t.From, "to", t.To, "error", t.Err)
	} else {
		a.log.Info("lifecycle transition", "from", t.From, "to", t.To)
	}
	for _, o := range observers {
		o(t)
	}
}

func runHook(ctx context.Context, h namedHook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.fn(ctx)
}
