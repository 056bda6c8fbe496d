package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/appkit/pkg/errhttp"
	"github.com/ghuser/appkit/pkg/httpx"
	appsvcs "github.com/ghuser/appkit/services/instance/application/services"
)

// GetInstanceHandler handles GET /instances/{serviceId} requests.
type GetInstanceHandler struct {
	svc *appsvcs.Services
}

// NewGetInstanceHandler returns a GetInstanceHandler backed by the given services.
func NewGetInstanceHandler(svc *appsvcs.Services) *GetInstanceHandler {
	return &GetInstanceHandler{svc: svc}
}

// Execute returns the latest state of one instance.
//
//	@Summary		Get instance
//	@Tags			instances
//	@Produce		json
//	@Param			serviceId	path		string	true	"Service instance id"
//	@Success		200			{object}	InstanceResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/instances/{serviceId} [get]
func (h *GetInstanceHandler) Execute(w http.ResponseWriter, r *http.Request) {
	inst, err := h.svc.Instance.Get(r.Context(), chi.URLParam(r, "serviceId"))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInstanceResponse(inst))
}
