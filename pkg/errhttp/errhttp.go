// Package errhttp maps domain and lifecycle sentinel errors to HTTP responses.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/appkit/pkg/httpx"
	"github.com/ghuser/appkit/pkg/lifecycle"
	instancedomain "github.com/ghuser/appkit/services/instance/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors.
//
// Lifecycle errors become 503; ErrServiceUnavailable and ErrClosed also set
// Connection: close so the client does not reuse a connection to an instance
// that is going away.
func WriteError(w http.ResponseWriter, err error) {
	status := mapErrorToStatus(err)
	if errors.Is(err, lifecycle.ErrServiceUnavailable) || errors.Is(err, lifecycle.ErrClosed) {
		w.Header().Set("Connection", "close")
	}
	httpx.JSONError(w, status, err.Error())
}

func mapErrorToStatus(err error) int {
	var hookErr *lifecycle.HookFailureError
	switch {
	case errors.Is(err, instancedomain.ErrInstanceNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, instancedomain.ErrTransitionAlreadyRecorded):
		return http.StatusConflict // 409
	case errors.Is(err, instancedomain.ErrInvalidServiceID),
		errors.Is(err, instancedomain.ErrIllegalTransition):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, lifecycle.ErrServiceUnavailable),
		errors.Is(err, lifecycle.ErrInvalidState),
		errors.As(err, &hookErr):
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
