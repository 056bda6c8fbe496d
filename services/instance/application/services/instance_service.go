package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	pkgcache "github.com/ghuser/appkit/pkg/cache"
	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
	instancedomain "github.com/ghuser/appkit/services/instance/domain"
	"github.com/ghuser/appkit/services/instance/domain/models"
	"github.com/ghuser/appkit/services/instance/domain/repositories"
	domainsvcs "github.com/ghuser/appkit/services/instance/domain/services"
)

// InstanceService records lifecycle transitions and serves the fleet view.
// Event publishing is handled by the repository layer (outbox pattern).
// Reads prefer the Redis read model maintained by the worker.
type InstanceService struct {
	repo  repositories.TransitionRepository
	cache *pkgcache.InstanceCache
	log   logger.Logger
}

// NewInstanceService returns an InstanceService. cache may be nil.
func NewInstanceService(repo repositories.TransitionRepository, cache *pkgcache.InstanceCache, log logger.Logger) *InstanceService {
	return &InstanceService{repo: repo, cache: cache, log: log}
}

// Record validates and persists one transition of the given instance.
func (s *InstanceService) Record(ctx context.Context, serviceName, serviceID string, t lifecycle.Transition) (*models.Transition, error) {
	id, err := models.NewServiceID(serviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", instancedomain.ErrInvalidServiceID, err)
	}
	tr := models.NewTransition(serviceName, id, t)
	if err := domainsvcs.ValidateTransition(tr); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, tr); err != nil {
		return nil, fmt.Errorf("save transition: %w", err)
	}
	return tr, nil
}

// List returns the fleet, most recently updated first. The Redis read model is
// used when it has data; Postgres is the fallback.
func (s *InstanceService) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.Instance, int, error) {
	if s.cache != nil {
		cached, total, err := s.cache.List(ctx, opts.Offset, opts.Limit)
		switch {
		case err == nil:
			out := make([]*models.Instance, 0, len(cached))
			for _, c := range cached {
				inst, err := fromCache(c)
				if err != nil {
					s.log.WarnContext(ctx, "skipping unreadable cache entry", "service_id", c.ServiceID, "error", err)
					continue
				}
				out = append(out, inst)
			}
			return out, total, nil
		case !errors.Is(err, redis.Nil):
			s.log.WarnContext(ctx, "instance cache unavailable, reading from postgres", "error", err)
		}
	}

	list, total, err := s.repo.ListInstances(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list instances: %w", err)
	}
	return list, total, nil
}

// Get returns the latest state of one instance.
func (s *InstanceService) Get(ctx context.Context, serviceID string) (*models.Instance, error) {
	id, err := models.NewServiceID(serviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", instancedomain.ErrInvalidServiceID, err)
	}
	if s.cache != nil {
		if c, err := s.cache.Get(ctx, id.String()); err == nil {
			if inst, err := fromCache(c); err == nil {
				return inst, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.WarnContext(ctx, "instance cache unavailable, reading from postgres", "error", err)
		}
	}

	inst, err := s.repo.GetInstance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return inst, nil
}

// History returns the transitions of one instance, newest first.
func (s *InstanceService) History(ctx context.Context, serviceID string, opts repositories.QueryOpts) ([]*models.Transition, int, error) {
	id, err := models.NewServiceID(serviceID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", instancedomain.ErrInvalidServiceID, err)
	}
	list, total, err := s.repo.ListByInstance(ctx, id, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list transitions: %w", err)
	}
	return list, total, nil
}

func fromCache(c *pkgcache.CachedInstance) (*models.Instance, error) {
	state, err := lifecycle.ParseState(c.State)
	if err != nil {
		return nil, err
	}
	return &models.Instance{
		ServiceID:   models.ServiceID(c.ServiceID),
		ServiceName: c.ServiceName,
		State:       state,
		LastError:   c.LastError,
		UpdatedAt:   c.UpdatedAt,
	}, nil
}
