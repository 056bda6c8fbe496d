// Package services contains stateless domain services for the instance
// bounded context.
package services

import (
	"fmt"

	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/services/instance/domain"
	"github.com/ghuser/appkit/services/instance/domain/models"
)

// ValidateTransition rejects transitions the lifecycle state machine never
// makes:
//
//	SETUP -> READYING -> READY
//	READYING -> SETUP (startup failed)
//	SETUP | READYING | READY -> CLOSING -> CLOSED
func ValidateTransition(t *models.Transition) error {
	if t == nil {
		return fmt.Errorf("%w: transition cannot be nil", domain.ErrIllegalTransition)
	}
	if t.ServiceID == "" {
		return fmt.Errorf("%w: empty service id", domain.ErrInvalidServiceID)
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing timestamp", domain.ErrIllegalTransition)
	}
	if !Allowed(t.From, t.To) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, t.From, t.To)
	}
	return nil
}

// Allowed reports whether from -> to is an edge of the lifecycle state machine.
func Allowed(from, to lifecycle.State) bool {
	switch to {
	case lifecycle.StateReadying:
		return from == lifecycle.StateSetup
	case lifecycle.StateReady:
		return from == lifecycle.StateReadying
	case lifecycle.StateSetup:
		return from == lifecycle.StateReadying
	case lifecycle.StateClosing:
		return from == lifecycle.StateSetup || from == lifecycle.StateReadying || from == lifecycle.StateReady
	case lifecycle.StateClosed:
		return from == lifecycle.StateClosing
	}
	return false
}
