package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/ghuser/appkit/pkg/httpx"
	"github.com/ghuser/appkit/pkg/logger"
	pkgvalidator "github.com/ghuser/appkit/pkg/validator"
)

// LoginRequest is the request body for POST /session.
type LoginRequest struct {
	Subject string `json:"subject" validate:"required,max=128" example:"op-17"`
	Name    string `json:"name"    validate:"max=256"          example:"Ada Operator"`
} // @name LoginRequest

// SessionHandler exchanges the operator token for a session cookie.
type SessionHandler struct {
	store sessions.Store
	token []byte
	log   logger.Logger
}

// NewSessionHandler returns a SessionHandler. An empty token disables Login.
func NewSessionHandler(store sessions.Store, token string, log logger.Logger) *SessionHandler {
	return &SessionHandler{store: store, token: []byte(token), log: log}
}

// Login starts an operator session.
//
//	@Summary		Start session
//	@Description	Exchanges the operator bearer token for a session cookie
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			Authorization	header		string			true	"Bearer operator token"
//	@Param			request			body		LoginRequest	true	"Operator identity"
//	@Success		201				{object}	Identity
//	@Failure		400				{object}	map[string]string
//	@Failure		401				{object}	map[string]string
//	@Failure		422				{object}	map[string]string
//	@Router			/session [post]
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.log.WarnContext(r.Context(), "rejected session request", "remote", r.RemoteAddr)
		httpx.JSONError(w, http.StatusUnauthorized, "invalid operator token")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[LoginRequest](w, r)
	if !ok {
		return
	}

	id := Identity{Subject: req.Subject, Name: req.Name}
	if err := StartSession(w, r, h.store, id); err != nil {
		h.log.ErrorContext(r.Context(), "failed to start session", "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	httpx.JSON(w, http.StatusCreated, id)
}

// Logout ends the current session.
//
//	@Summary	End session
//	@Tags		session
//	@Success	204
//	@Router		/session [delete]
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := EndSession(w, r, h.store); err != nil {
		h.log.ErrorContext(r.Context(), "failed to end session", "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "could not end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Whoami returns the identity of the current session. Mount behind RequireAuth.
//
//	@Summary	Current session
//	@Tags		session
//	@Produce	json
//	@Success	200	{object}	Identity
//	@Failure	401	{object}	map[string]string
//	@Router		/session [get]
func (h *SessionHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	id, err := IdentityFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, id)
}

func (h *SessionHandler) authorized(r *http.Request) bool {
	if len(h.token) == 0 {
		return false
	}
	presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), h.token) == 1
}
