package repositories

import (
	"context"

	"github.com/ghuser/appkit/services/instance/domain/models"
)

// QueryOpts contains pagination parameters for list queries.
type QueryOpts struct {
	Limit  int // Maximum number of records to return
	Offset int // Number of records to skip
}

// TransitionRepository is the persistence interface for recorded transitions.
// The domain layer owns this interface; infrastructure implements it.
type TransitionRepository interface {
	// Save stores t and publishes a TransitionedEvent atomically with it.
	Save(ctx context.Context, t *models.Transition) error

	// ListByInstance returns an instance's transitions, newest first, and
	// the total count ignoring pagination.
	ListByInstance(ctx context.Context, id models.ServiceID, opts QueryOpts) ([]*models.Transition, int, error)

	// ListInstances returns the latest state of every known instance, most
	// recently updated first, and the total count ignoring pagination.
	ListInstances(ctx context.Context, opts QueryOpts) ([]*models.Instance, int, error)

	// GetInstance returns the latest state of one instance.
	GetInstance(ctx context.Context, id models.ServiceID) (*models.Instance, error)
}
