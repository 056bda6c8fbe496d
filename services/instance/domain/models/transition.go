package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/appkit/pkg/lifecycle"
)

// Transition is one recorded lifecycle state change of a service instance.
type Transition struct {
	ID          uuid.UUID
	ServiceName string
	ServiceID   ServiceID
	From        lifecycle.State
	To          lifecycle.State
	// Error is the failure behind the transition, empty when there was none.
	Error      string
	OccurredAt time.Time
}

// NewTransition builds a Transition from a lifecycle observer notification.
func NewTransition(serviceName string, id ServiceID, t lifecycle.Transition) *Transition {
	tr := &Transition{
		ID:          uuid.New(),
		ServiceName: serviceName,
		ServiceID:   id,
		From:        t.From,
		To:          t.To,
		OccurredAt:  t.At.UTC(),
	}
	if t.Err != nil {
		tr.Error = t.Err.Error()
	}
	return tr
}

// Instance is the latest known state of one service instance.
type Instance struct {
	ServiceID   ServiceID
	ServiceName string
	State       lifecycle.State
	LastError   string
	UpdatedAt   time.Time
}
