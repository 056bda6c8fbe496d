package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/appkit/pkg/errhttp"
	"github.com/ghuser/appkit/pkg/httpx"
	pkgvalidator "github.com/ghuser/appkit/pkg/validator"
	appsvcs "github.com/ghuser/appkit/services/instance/application/services"
	"github.com/ghuser/appkit/services/instance/domain/repositories"
)

// ListTransitionsHandler handles GET /instances/{serviceId}/transitions requests.
type ListTransitionsHandler struct {
	svc *appsvcs.Services
}

// NewListTransitionsHandler returns a ListTransitionsHandler backed by the given services.
func NewListTransitionsHandler(svc *appsvcs.Services) *ListTransitionsHandler {
	return &ListTransitionsHandler{svc: svc}
}

// Execute lists the transition history of one instance.
//
//	@Summary		List transitions
//	@Description	Lists the recorded lifecycle transitions of one instance, newest first
//	@Tags			instances
//	@Produce		json
//	@Param			serviceId	path		string	true	"Service instance id"
//	@Param			limit		query		int		false	"Page size (1-100)"	default(20)
//	@Param			offset		query		int		false	"Items to skip"		default(0)
//	@Success		200			{object}	ListTransitionsResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/instances/{serviceId}/transitions [get]
func (h *ListTransitionsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	page, ok := pkgvalidator.ValidatePage(w, r, DefaultPageSize)
	if !ok {
		return
	}

	list, total, err := h.svc.Instance.History(r.Context(), chi.URLParam(r, "serviceId"),
		repositories.QueryOpts{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	items := make([]TransitionResponse, 0, len(list))
	for _, t := range list {
		items = append(items, toTransitionResponse(t))
	}
	httpx.JSON(w, http.StatusOK, ListTransitionsResponse{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}
