package services

import (
	"context"
	"sync"
	"time"

	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
)

const (
	maxPendingTransitions = 32
	recordTimeout         = 5 * time.Second
)

// TransitionRecorder is a lifecycle.Observer that persists this process's
// own transitions.
//
// The store only becomes usable once the app is READY (its connections are
// opened by startup hooks) and stops being usable at CLOSED (they are closed
// by shutdown hooks). Transitions outside that window are buffered and
// written with the next writable transition; CLOSED itself is dropped.
type TransitionRecorder struct {
	svc         *InstanceService
	serviceName string
	serviceID   string
	log         logger.Logger

	mu       sync.Mutex
	writable bool
	pending  []lifecycle.Transition
}

// NewTransitionRecorder returns a recorder for the instance serviceID.
func NewTransitionRecorder(svc *InstanceService, serviceName, serviceID string, log logger.Logger) *TransitionRecorder {
	return &TransitionRecorder{
		svc:         svc,
		serviceName: serviceName,
		serviceID:   serviceID,
		log:         log.Child("component", "transition-recorder"),
	}
}

// Observe implements lifecycle.Observer.
func (r *TransitionRecorder) Observe(t lifecycle.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch t.To {
	case lifecycle.StateReady:
		r.writable = true
	case lifecycle.StateClosed:
		r.writable = false
		if len(r.pending) > 0 {
			r.log.Warn("dropping unrecorded transitions", "count", len(r.pending))
			r.pending = nil
		}
		r.log.Debug("not recording CLOSED transition, store already closed")
		return
	}

	r.pending = append(r.pending, t)
	if !r.writable {
		if len(r.pending) > maxPendingTransitions {
			r.pending = r.pending[len(r.pending)-maxPendingTransitions:]
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	for len(r.pending) > 0 {
		p := r.pending[0]
		if _, err := r.svc.Record(ctx, r.serviceName, r.serviceID, p); err != nil {
			r.log.ErrorContext(ctx, "failed to record lifecycle transition",
				"from", p.From, "to", p.To, "error", err)
		}
		r.pending = r.pending[1:]
	}
}
