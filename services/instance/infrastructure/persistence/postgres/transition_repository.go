package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/appkit/pkg/database"
	"github.com/ghuser/appkit/pkg/events"
	"github.com/ghuser/appkit/pkg/lifecycle"
	instancedomain "github.com/ghuser/appkit/services/instance/domain"
	domainevents "github.com/ghuser/appkit/services/instance/domain/events"
	"github.com/ghuser/appkit/services/instance/domain/models"
	"github.com/ghuser/appkit/services/instance/domain/repositories"
	"github.com/ghuser/appkit/services/instance/infrastructure/persistence/postgres/db"
)

// TransitionRepository implements repositories.TransitionRepository against PostgreSQL.
type TransitionRepository struct {
	db  *database.Database
	bus *events.EventBus
}

var _ repositories.TransitionRepository = (*TransitionRepository)(nil)

// NewTransitionRepository returns a TransitionRepository backed by the given
// pool and event bus. A nil bus disables event publishing.
func NewTransitionRepository(database *database.Database, bus *events.EventBus) *TransitionRepository {
	return &TransitionRepository{db: database, bus: bus}
}

// Save persists t and publishes a TransitionedEvent in the same transaction.
// On a bus without transactional publishing the event is published right
// after commit. Returns ErrTransitionAlreadyRecorded on a duplicate id.
func (r *TransitionRepository) Save(ctx context.Context, t *models.Transition) error {
	var afterCommit *message.Message
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		q := db.New(tx)
		if err := q.InsertTransition(ctx, db.LifecycleTransition{
			ID:          t.ID,
			ServiceName: t.ServiceName,
			ServiceID:   t.ServiceID.String(),
			FromState:   t.From.String(),
			ToState:     t.To.String(),
			Error:       t.Error,
			OccurredAt:  t.OccurredAt,
		}); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return instancedomain.ErrTransitionAlreadyRecorded
			}
			return fmt.Errorf("insert transition: %w", err)
		}

		if r.bus == nil {
			return nil
		}
		msg, err := newTransitionedMessage(ctx, t)
		if err != nil {
			return err
		}
		pub, err := r.bus.NewTxPublisher(tx)
		if errors.Is(err, events.ErrNoTransactions) {
			afterCommit = msg
			return nil
		}
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		if err := pub.Publish(domainevents.TopicLifecycleTransitioned, msg); err != nil {
			return fmt.Errorf("publish transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if afterCommit != nil {
		return r.bus.Publish(ctx, domainevents.TopicLifecycleTransitioned, afterCommit)
	}
	return nil
}

// ListByInstance returns the transitions of one instance, newest first.
func (r *TransitionRepository) ListByInstance(ctx context.Context, id models.ServiceID, opts repositories.QueryOpts) ([]*models.Transition, int, error) {
	q := db.New(r.db.DB())
	rows, err := q.ListTransitionsByServiceID(ctx, db.ListTransitionsByServiceIDParams{
		ServiceID: id.String(),
		Limit:     int32(opts.Limit),
		Offset:    int32(opts.Offset),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("query transitions: %w", err)
	}
	total, err := q.CountTransitionsByServiceID(ctx, id.String())
	if err != nil {
		return nil, 0, fmt.Errorf("count transitions: %w", err)
	}
	if total == 0 {
		return nil, 0, instancedomain.ErrInstanceNotFound
	}

	out := make([]*models.Transition, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTransition(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, int(total), nil
}

// ListInstances returns the latest state of every known instance.
func (r *TransitionRepository) ListInstances(ctx context.Context, opts repositories.QueryOpts) ([]*models.Instance, int, error) {
	q := db.New(r.db.DB())
	rows, err := q.ListLatestTransitions(ctx, db.ListLatestTransitionsParams{
		Limit:  int32(opts.Limit),
		Offset: int32(opts.Offset),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("query instances: %w", err)
	}
	total, err := q.CountInstances(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count instances: %w", err)
	}

	out := make([]*models.Instance, 0, len(rows))
	for _, row := range rows {
		inst, err := rowToInstance(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inst)
	}
	return out, int(total), nil
}

// GetInstance returns the latest state of one instance.
func (r *TransitionRepository) GetInstance(ctx context.Context, id models.ServiceID) (*models.Instance, error) {
	row, err := db.New(r.db.DB()).GetLatestTransition(ctx, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, instancedomain.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("query instance: %w", err)
	}
	return rowToInstance(row)
}

func newTransitionedMessage(ctx context.Context, t *models.Transition) (*message.Message, error) {
	event := domainevents.TransitionedEvent{
		EventID:      uuid.New(),
		Version:      1,
		TransitionID: t.ID,
		ServiceName:  t.ServiceName,
		ServiceID:    t.ServiceID.String(),
		From:         t.From.String(),
		To:           t.To.String(),
		Error:        t.Error,
		OccurredAt:   t.OccurredAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := events.NewMessage(ctx, payload)
	msg.Metadata.Set("event_id", event.EventID.String())
	msg.Metadata.Set("event_version", "1")
	return msg, nil
}

func rowToTransition(row db.LifecycleTransition) (*models.Transition, error) {
	from, err := lifecycle.ParseState(row.FromState)
	if err != nil {
		return nil, fmt.Errorf("transition %s: %w", row.ID, err)
	}
	to, err := lifecycle.ParseState(row.ToState)
	if err != nil {
		return nil, fmt.Errorf("transition %s: %w", row.ID, err)
	}
	return &models.Transition{
		ID:          row.ID,
		ServiceName: row.ServiceName,
		ServiceID:   models.ServiceID(row.ServiceID),
		From:        from,
		To:          to,
		Error:       row.Error,
		OccurredAt:  row.OccurredAt,
	}, nil
}

func rowToInstance(row db.LifecycleTransition) (*models.Instance, error) {
	state, err := lifecycle.ParseState(row.ToState)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", row.ServiceID, err)
	}
	return &models.Instance{
		ServiceID:   models.ServiceID(row.ServiceID),
		ServiceName: row.ServiceName,
		State:       state,
		LastError:   row.Error,
		UpdatedAt:   row.OccurredAt,
	}, nil
}
