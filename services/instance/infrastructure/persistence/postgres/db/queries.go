package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LifecycleTransition is a row of lifecycle_transitions.
type LifecycleTransition struct {
	ID          uuid.UUID
	ServiceName string
	ServiceID   string
	FromState   string
	ToState     string
	Error       string
	OccurredAt  time.Time
}

const transitionColumns = `id, service_name, service_id, from_state, to_state, error, occurred_at`

const insertTransition = `INSERT INTO lifecycle_transitions (` + transitionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) InsertTransition(ctx context.Context, arg LifecycleTransition) error {
	_, err := q.db.ExecContext(ctx, insertTransition,
		arg.ID,
		arg.ServiceName,
		arg.ServiceID,
		arg.FromState,
		arg.ToState,
		arg.Error,
		arg.OccurredAt,
	)
	return err
}

const listTransitionsByServiceID = `SELECT ` + transitionColumns + `
FROM lifecycle_transitions
WHERE service_id = $1
ORDER BY occurred_at DESC, id
LIMIT $2 OFFSET $3`

type ListTransitionsByServiceIDParams struct {
	ServiceID string
	Limit     int32
	Offset    int32
}

func (q *Queries) ListTransitionsByServiceID(ctx context.Context, arg ListTransitionsByServiceIDParams) ([]LifecycleTransition, error) {
	rows, err := q.db.QueryContext(ctx, listTransitionsByServiceID, arg.ServiceID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanTransitions(rows)
}

const countTransitionsByServiceID = `SELECT COUNT(*) FROM lifecycle_transitions WHERE service_id = $1`

func (q *Queries) CountTransitionsByServiceID(ctx context.Context, serviceID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countTransitionsByServiceID, serviceID).Scan(&count)
	return count, err
}

const listLatestTransitions = `SELECT ` + transitionColumns + `
FROM (
    SELECT DISTINCT ON (service_id) ` + transitionColumns + `
    FROM lifecycle_transitions
    ORDER BY service_id, occurred_at DESC
) latest
ORDER BY occurred_at DESC, service_id
LIMIT $1 OFFSET $2`

type ListLatestTransitionsParams struct {
	Limit  int32
	Offset int32
}

// ListLatestTransitions returns the newest transition of each instance.
func (q *Queries) ListLatestTransitions(ctx context.Context, arg ListLatestTransitionsParams) ([]LifecycleTransition, error) {
	rows, err := q.db.QueryContext(ctx, listLatestTransitions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanTransitions(rows)
}

const countInstances = `SELECT COUNT(DISTINCT service_id) FROM lifecycle_transitions`

func (q *Queries) CountInstances(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countInstances).Scan(&count)
	return count, err
}

const getLatestTransition = `SELECT ` + transitionColumns + `
FROM lifecycle_transitions
WHERE service_id = $1
ORDER BY occurred_at DESC
LIMIT 1`

func (q *Queries) GetLatestTransition(ctx context.Context, serviceID string) (LifecycleTransition, error) {
	var t LifecycleTransition
	err := q.db.QueryRowContext(ctx, getLatestTransition, serviceID).Scan(
		&t.ID, &t.ServiceName, &t.ServiceID, &t.FromState, &t.ToState, &t.Error, &t.OccurredAt,
	)
	return t, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

func scanTransitions(rows rowScanner) ([]LifecycleTransition, error) {
	defer rows.Close() //nolint:errcheck
	var items []LifecycleTransition
	for rows.Next() {
		var t LifecycleTransition
		if err := rows.Scan(&t.ID, &t.ServiceName, &t.ServiceID, &t.FromState, &t.ToState, &t.Error, &t.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
