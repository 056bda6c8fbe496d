package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicLifecycleTransitioned is published for every recorded lifecycle transition.
const TopicLifecycleTransitioned = "lifecycle.transitioned"

// TransitionedEvent is published after a Transition is persisted.
// Consumers subscribe via EventBus.Subscribe(ctx, events.TopicLifecycleTransitioned).
type TransitionedEvent struct {
	EventID      uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version      int       `json:"version"`  // Schema version; increment on breaking changes
	TransitionID uuid.UUID `json:"transition_id"`
	ServiceName  string    `json:"service_name"`
	ServiceID    string    `json:"service_id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
