package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	pkgcache "github.com/ghuser/appkit/pkg/cache"
	"github.com/ghuser/appkit/pkg/logger"
	instancedomain "github.com/ghuser/appkit/services/instance/domain"
	"github.com/ghuser/appkit/services/instance/domain/models"
	"github.com/ghuser/appkit/services/instance/domain/repositories"
)

// memRepo is an in-memory TransitionRepository.
type memRepo struct {
	mu      sync.Mutex
	saved   []*models.Transition
	saveErr error
	listErr error
}

func (m *memRepo) Save(_ context.Context, t *models.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, t)
	return nil
}

func (m *memRepo) ListByInstance(_ context.Context, id models.ServiceID, opts repositories.QueryOpts) ([]*models.Transition, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transition
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].ServiceID == id {
			out = append(out, m.saved[i])
		}
	}
	if len(out) == 0 {
		return nil, 0, instancedomain.ErrInstanceNotFound
	}
	return page(out, opts), len(out), nil
}

func (m *memRepo) ListInstances(_ context.Context, opts repositories.QueryOpts) ([]*models.Instance, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	latest := map[models.ServiceID]*models.Instance{}
	for _, t := range m.saved {
		latest[t.ServiceID] = &models.Instance{
			ServiceID:   t.ServiceID,
			ServiceName: t.ServiceName,
			State:       t.To,
			LastError:   t.Error,
			UpdatedAt:   t.OccurredAt,
		}
	}
	out := make([]*models.Instance, 0, len(latest))
	for _, inst := range latest {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return page(out, opts), len(out), nil
}

func (m *memRepo) GetInstance(ctx context.Context, id models.ServiceID) (*models.Instance, error) {
	list, _, err := m.ListInstances(ctx, repositories.QueryOpts{Limit: 1000})
	if err != nil {
		return nil, err
	}
	for _, inst := range list {
		if inst.ServiceID == id {
			return inst, nil
		}
	}
	return nil, instancedomain.ErrInstanceNotFound
}

func (m *memRepo) transitions() []*models.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Transition(nil), m.saved...)
}

func page[T any](items []T, opts repositories.QueryOpts) []T {
	if opts.Offset >= len(items) {
		return nil
	}
	end := opts.Offset + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[opts.Offset:end]
}

func quietLogger() logger.Logger {
	return logger.NewWithWriter(io.Discard, "error")
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *pkgcache.InstanceCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, pkgcache.NewInstanceCache(pkgcache.Wrap(client))
}
