package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghuser/appkit/pkg/httpx"
	"github.com/ghuser/appkit/pkg/lifecycle"
)

type fixedState lifecycle.State

func (s fixedState) State() lifecycle.State { return lifecycle.State(s) }

func getHealth(t *testing.T, h http.Handler) (int, http.Header, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/.well_known/_health", http.NoBody))
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rr.Code, rr.Header(), body
}

func TestHealthHandler_States(t *testing.T) {
	tests := []struct {
		state      lifecycle.State
		wantStatus int
		wantBody   string
		wantOutput string
	}{
		{lifecycle.StateSetup, http.StatusServiceUnavailable, "fail", "Application is not ready"},
		{lifecycle.StateReadying, http.StatusServiceUnavailable, "fail", "Application is not ready"},
		{lifecycle.StateReady, http.StatusOK, "pass", ""},
		{lifecycle.StateClosing, http.StatusServiceUnavailable, "fail", "Application is shutting down"},
		{lifecycle.StateClosed, http.StatusServiceUnavailable, "fail", "Application is shutting down"},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := httpx.HealthHandler(fixedState(tt.state), httpx.HealthInfo{ServiceID: "api-7f9c"})
			code, header, body := getHealth(t, h)

			if code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", code, tt.wantStatus)
			}
			if ct := header.Get("Content-Type"); ct != httpx.ContentTypeHealth {
				t.Errorf("Content-Type: got %q", ct)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("status: got %q, want %q", body["status"], tt.wantBody)
			}
			output, hasOutput := body["output"]
			if tt.wantOutput == "" && hasOutput {
				t.Errorf("output should be omitted, got %q", output)
			}
			if output != tt.wantOutput {
				t.Errorf("output: got %q, want %q", output, tt.wantOutput)
			}
			if body["serviceId"] != "api-7f9c" {
				t.Errorf("serviceId: got %q", body["serviceId"])
			}
		})
	}
}

func TestHealthHandler_IncludesBuildInfo(t *testing.T) {
	h := httpx.HealthHandler(fixedState(lifecycle.StateReady), httpx.HealthInfo{
		ServiceID:   "api-1",
		Version:     "1.4.0",
		ReleaseID:   "1.4.0-rc2",
		Description: "appkit api",
	})
	_, _, body := getHealth(t, h)
	if body["version"] != "1.4.0" || body["releaseId"] != "1.4.0-rc2" || body["description"] != "appkit api" {
		t.Errorf("unexpected body: %+v", body)
	}
}

// The health endpoint reads state only; querying it must not start the app.
func TestHealthHandler_DoesNotStartApp(t *testing.T) {
	app := lifecycle.New()
	started := false
	if err := app.OnInit("warmup", func(context.Context) error {
		started = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	h := httpx.HealthHandler(app, httpx.HealthInfo{ServiceID: "api-1"})
	for range 3 {
		getHealth(t, h)
	}
	if started || app.State() != lifecycle.StateSetup {
		t.Fatalf("health probe changed the app: started=%v state=%s", started, app.State())
	}
}
