package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	pkgcache "github.com/ghuser/appkit/pkg/cache"
	"github.com/ghuser/appkit/pkg/logger"
	domainevents "github.com/ghuser/appkit/services/instance/domain/events"
)

// InstanceProjector keeps the Redis read model in step with
// lifecycle.transitioned events. Handle is idempotent: replays and
// out-of-order deliveries never move an instance back in time.
type InstanceProjector struct {
	cache *pkgcache.InstanceCache
	log   logger.Logger
}

// NewInstanceProjector returns a projector writing to cache.
func NewInstanceProjector(cache *pkgcache.InstanceCache, log logger.Logger) *InstanceProjector {
	return &InstanceProjector{cache: cache, log: log}
}

// Handle applies one TransitionedEvent message.
func (p *InstanceProjector) Handle(ctx context.Context, msg *message.Message) error {
	var evt domainevents.TransitionedEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		// A malformed payload will never parse; retrying it is pointless.
		p.log.ErrorContext(ctx, "dropping malformed transition event", "message_id", msg.UUID, "error", err)
		return nil
	}

	written, err := p.cache.Put(ctx, &pkgcache.CachedInstance{
		ServiceID:   evt.ServiceID,
		ServiceName: evt.ServiceName,
		State:       evt.To,
		LastError:   evt.Error,
		UpdatedAt:   evt.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("project transition %s: %w", evt.TransitionID, err)
	}
	if written {
		p.log.InfoContext(ctx, "instance state updated",
			"service_id", evt.ServiceID, "from", evt.From, "to", evt.To)
	} else {
		p.log.DebugContext(ctx, "stale transition ignored",
			"service_id", evt.ServiceID, "transition_id", evt.TransitionID)
	}
	return nil
}
