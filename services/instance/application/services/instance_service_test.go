package services

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgcache "github.com/ghuser/appkit/pkg/cache"
	"github.com/ghuser/appkit/pkg/lifecycle"
	instancedomain "github.com/ghuser/appkit/services/instance/domain"
	"github.com/ghuser/appkit/services/instance/domain/repositories"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestInstanceService_Record(t *testing.T) {
	tests := []struct {
		name      string
		serviceID string
		tr        lifecycle.Transition
		wantErr   error
	}{
		{"startup", "api-1", lifecycle.Transition{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: t0}, nil},
		{"failed startup carries error", "api-1", lifecycle.Transition{From: lifecycle.StateReadying, To: lifecycle.StateSetup, At: t0, Err: errors.New("db down")}, nil},
		{"invalid service id", "bad id!", lifecycle.Transition{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: t0}, instancedomain.ErrInvalidServiceID},
		{"illegal edge", "api-1", lifecycle.Transition{From: lifecycle.StateReady, To: lifecycle.StateSetup, At: t0}, instancedomain.ErrIllegalTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{}
			svc := NewInstanceService(repo, nil, quietLogger())

			got, err := svc.Record(context.Background(), "appkit", tt.serviceID, tt.tr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(repo.transitions()) != 0 {
					t.Fatal("rejected transition must not be saved")
				}
				return
			}
			if err != nil {
				t.Fatalf("Record: %v", err)
			}
			if got.From != tt.tr.From || got.To != tt.tr.To || got.ServiceName != "appkit" {
				t.Errorf("unexpected transition: %+v", got)
			}
			if tt.tr.Err != nil && got.Error != tt.tr.Err.Error() {
				t.Errorf("error not carried: %q", got.Error)
			}
			if len(repo.transitions()) != 1 {
				t.Fatalf("expected 1 saved transition, got %d", len(repo.transitions()))
			}
		})
	}
}

func TestInstanceService_Record_SaveError(t *testing.T) {
	repo := &memRepo{saveErr: instancedomain.ErrTransitionAlreadyRecorded}
	svc := NewInstanceService(repo, nil, quietLogger())

	_, err := svc.Record(context.Background(), "appkit", "api-1",
		lifecycle.Transition{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: t0})
	if !errors.Is(err, instancedomain.ErrTransitionAlreadyRecorded) {
		t.Fatalf("expected ErrTransitionAlreadyRecorded, got %v", err)
	}
}

func TestInstanceService_List_PrefersCache(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()
	if _, err := c.Put(ctx, &pkgcache.CachedInstance{ServiceID: "api-9", ServiceName: "appkit", State: "READY", UpdatedAt: t0}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// The repository has no data; a hit must come from Redis.
	repo := &memRepo{listErr: errors.New("postgres must not be queried")}
	svc := NewInstanceService(repo, c, quietLogger())

	list, total, err := svc.List(ctx, repositories.QueryOpts{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ServiceID != "api-9" || list[0].State != lifecycle.StateReady {
		t.Fatalf("unexpected list: total=%d %+v", total, list)
	}
}

func TestInstanceService_List_FallsBackToPostgres(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()
	repo := &memRepo{}
	svc := NewInstanceService(repo, c, quietLogger())

	for _, tr := range []lifecycle.Transition{
		{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: t0},
		{From: lifecycle.StateReadying, To: lifecycle.StateReady, At: t0.Add(time.Second)},
	} {
		if _, err := svc.Record(ctx, "appkit", "api-1", tr); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	// Empty read model.
	list, total, err := svc.List(ctx, repositories.QueryOpts{Limit: 10})
	if err != nil || total != 1 || list[0].State != lifecycle.StateReady {
		t.Fatalf("empty cache: total=%d list=%v err=%v", total, list, err)
	}

	// Redis unavailable.
	mr.Close()
	list, total, err = svc.List(ctx, repositories.QueryOpts{Limit: 10})
	if err != nil || total != 1 || list[0].ServiceID != "api-1" {
		t.Fatalf("redis down: total=%d list=%v err=%v", total, list, err)
	}
}

func TestInstanceService_Get(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()
	repo := &memRepo{}
	svc := NewInstanceService(repo, c, quietLogger())

	if _, err := svc.Get(ctx, "api-1"); !errors.Is(err, instancedomain.ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, ""); !errors.Is(err, instancedomain.ErrInvalidServiceID) {
		t.Fatalf("expected ErrInvalidServiceID, got %v", err)
	}

	if _, err := c.Put(ctx, &pkgcache.CachedInstance{ServiceID: "api-1", ServiceName: "appkit", State: "CLOSING", UpdatedAt: t0}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	inst, err := svc.Get(ctx, "api-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if inst.State != lifecycle.StateClosing {
		t.Errorf("state: got %s, want CLOSING", inst.State)
	}
}

func TestInstanceService_History(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	svc := NewInstanceService(repo, nil, quietLogger())

	steps := []lifecycle.Transition{
		{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: t0},
		{From: lifecycle.StateReadying, To: lifecycle.StateReady, At: t0.Add(time.Second)},
		{From: lifecycle.StateReady, To: lifecycle.StateClosing, At: t0.Add(2 * time.Second)},
	}
	for _, tr := range steps {
		if _, err := svc.Record(ctx, "appkit", "api-1", tr); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	list, total, err := svc.History(ctx, "api-1", repositories.QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(list), total)
	}
	if list[0].To != lifecycle.StateClosing {
		t.Errorf("expected newest first, got %s", list[0].To)
	}

	if _, _, err := svc.History(ctx, "api-2", repositories.QueryOpts{Limit: 2}); !errors.Is(err, instancedomain.ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
}
