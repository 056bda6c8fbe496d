package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
	"github.com/ghuser/appkit/services/instance/application/handlers"
	appsvcs "github.com/ghuser/appkit/services/instance/application/services"
	instancedomain "github.com/ghuser/appkit/services/instance/domain"
	"github.com/ghuser/appkit/services/instance/domain/models"
	"github.com/ghuser/appkit/services/instance/domain/repositories"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stubRepo serves canned data and records the pagination it was asked for.
type stubRepo struct {
	instances   []*models.Instance
	transitions []*models.Transition
	lastOpts    repositories.QueryOpts
}

func (s *stubRepo) Save(context.Context, *models.Transition) error { return nil }

func (s *stubRepo) ListByInstance(_ context.Context, id models.ServiceID, opts repositories.QueryOpts) ([]*models.Transition, int, error) {
	s.lastOpts = opts
	var out []*models.Transition
	for _, t := range s.transitions {
		if t.ServiceID == id {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, 0, instancedomain.ErrInstanceNotFound
	}
	return out, len(out), nil
}

func (s *stubRepo) ListInstances(_ context.Context, opts repositories.QueryOpts) ([]*models.Instance, int, error) {
	s.lastOpts = opts
	return s.instances, len(s.instances), nil
}

func (s *stubRepo) GetInstance(_ context.Context, id models.ServiceID) (*models.Instance, error) {
	for _, inst := range s.instances {
		if inst.ServiceID == id {
			return inst, nil
		}
	}
	return nil, instancedomain.ErrInstanceNotFound
}

func newRouter(repo *stubRepo) http.Handler {
	log := logger.NewWithWriter(io.Discard, "error")
	svcs := &appsvcs.Services{Instance: appsvcs.NewInstanceService(repo, nil, log)}
	r := chi.NewRouter()
	InstanceRoutes(r, svcs)
	return r
}

func fixture() *stubRepo {
	return &stubRepo{
		instances: []*models.Instance{
			{ServiceID: "api-2", ServiceName: "appkit", State: lifecycle.StateClosing, UpdatedAt: t0.Add(time.Minute)},
			{ServiceID: "api-1", ServiceName: "appkit", State: lifecycle.StateReady, UpdatedAt: t0},
		},
		transitions: []*models.Transition{
			{ServiceID: "api-1", ServiceName: "appkit", From: lifecycle.StateReadying, To: lifecycle.StateReady, OccurredAt: t0},
			{ServiceID: "api-1", ServiceName: "appkit", From: lifecycle.StateSetup, To: lifecycle.StateReadying, OccurredAt: t0.Add(-time.Second)},
		},
	}
}

func TestListInstances(t *testing.T) {
	repo := fixture()
	w := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/instances?limit=5&offset=0", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body handlers.ListInstancesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || len(body.Items) != 2 || body.Limit != 5 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Items[0].ServiceID != "api-2" || body.Items[0].State != "CLOSING" {
		t.Errorf("unexpected first item: %+v", body.Items[0])
	}
	if repo.lastOpts.Limit != 5 {
		t.Errorf("limit not passed through: %+v", repo.lastOpts)
	}
}

func TestListInstances_DefaultPage(t *testing.T) {
	repo := fixture()
	w := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/instances", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if repo.lastOpts.Limit != handlers.DefaultPageSize || repo.lastOpts.Offset != 0 {
		t.Errorf("unexpected default page: %+v", repo.lastOpts)
	}
}

func TestRoutes_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"limit out of range", "/instances?limit=500", http.StatusUnprocessableEntity},
		{"unknown instance", "/instances/api-9", http.StatusNotFound},
		{"invalid service id", "/instances/bad!id", http.StatusUnprocessableEntity},
		{"history of unknown instance", "/instances/api-9/transitions", http.StatusNotFound},
		{"history with bad offset", "/instances/api-1/transitions?offset=-2", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(fixture()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetInstance(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(fixture()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/instances/api-1", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body handlers.InstanceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != "READY" || !body.UpdatedAt.Equal(t0) {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestListTransitions(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(fixture()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/instances/api-1/transitions", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body handlers.ListTransitionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || body.Items[0].To != "READY" || body.Items[1].From != "SETUP" {
		t.Errorf("unexpected body: %+v", body)
	}
}
