package handlers

import (
	"net/http"

	"github.com/ghuser/appkit/pkg/errhttp"
	"github.com/ghuser/appkit/pkg/httpx"
	pkgvalidator "github.com/ghuser/appkit/pkg/validator"
	appsvcs "github.com/ghuser/appkit/services/instance/application/services"
	"github.com/ghuser/appkit/services/instance/domain/repositories"
)

// DefaultPageSize applies when a list request has no ?limit=.
const DefaultPageSize = 20

// ListInstancesHandler handles GET /instances requests.
type ListInstancesHandler struct {
	svc *appsvcs.Services
}

// NewListInstancesHandler returns a ListInstancesHandler backed by the given services.
func NewListInstancesHandler(svc *appsvcs.Services) *ListInstancesHandler {
	return &ListInstancesHandler{svc: svc}
}

// Execute lists known instances.
//
//	@Summary		List instances
//	@Description	Lists every known instance of the service with its latest lifecycle state, most recently updated first
//	@Tags			instances
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (1-100)"	default(20)
//	@Param			offset	query		int	false	"Items to skip"		default(0)
//	@Success		200		{object}	ListInstancesResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/instances [get]
func (h *ListInstancesHandler) Execute(w http.ResponseWriter, r *http.Request) {
	page, ok := pkgvalidator.ValidatePage(w, r, DefaultPageSize)
	if !ok {
		return
	}

	list, total, err := h.svc.Instance.List(r.Context(), repositories.QueryOpts{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	items := make([]InstanceResponse, 0, len(list))
	for _, inst := range list {
		items = append(items, toInstanceResponse(inst))
	}
	httpx.JSON(w, http.StatusOK, ListInstancesResponse{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}
