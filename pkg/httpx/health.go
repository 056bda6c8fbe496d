package httpx

import (
	"net/http"

	"github.com/ghuser/appkit/pkg/lifecycle"
)

// ContentTypeHealth is the media type of health responses.
const ContentTypeHealth = "application/health+json"

// Health status values.
const (
	HealthPass = "pass"
	HealthFail = "fail"
)

const (
	outputNotReady     = "Application is not ready"
	outputShuttingDown = "Application is shutting down"
)

// StateReader is the read side of lifecycle.App.
type StateReader interface {
	State() lifecycle.State
}

// HealthInfo identifies the service in health responses.
type HealthInfo struct {
	ServiceID   string
	Version     string
	ReleaseID   string
	Description string
}

// HealthResponse is the application/health+json body.
type HealthResponse struct {
	Status      string `json:"status"`
	Output      string `json:"output,omitempty"`
	ServiceID   string `json:"serviceId"`
	Version     string `json:"version,omitempty"`
	ReleaseID   string `json:"releaseId,omitempty"`
	Description string `json:"description,omitempty"`
}

// HealthHandler reports the lifecycle state. It never blocks on readiness and
// has no side effects; mount it outside ReadinessGate so probes always get
// an answer.
func HealthHandler(app StateReader, info HealthInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status, resp := healthSnapshot(app.State(), info)
		w.Header().Set("Cache-Control", "no-store")
		JSONAs(w, ContentTypeHealth, status, resp)
	}
}

func healthSnapshot(state lifecycle.State, info HealthInfo) (int, HealthResponse) {
	resp := HealthResponse{
		Status:      HealthPass,
		ServiceID:   info.ServiceID,
		Version:     info.Version,
		ReleaseID:   info.ReleaseID,
		Description: info.Description,
	}
	switch state {
	case lifecycle.StateReady:
		return http.StatusOK, resp
	case lifecycle.StateClosing, lifecycle.StateClosed:
		resp.Status = HealthFail
		resp.Output = outputShuttingDown
	default:
		resp.Status = HealthFail
		resp.Output = outputNotReady
	}
	return http.StatusServiceUnavailable, resp
}
