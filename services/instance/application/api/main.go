package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/appkit/services/instance/application/handlers"
	appsvcs "github.com/ghuser/appkit/services/instance/application/services"
)

// InstanceRoutes registers the fleet view endpoints on the provided chi router.
func InstanceRoutes(r chi.Router, svcs *appsvcs.Services) {
	r.Route("/instances", func(r chi.Router) {
		r.Get("/", handlers.NewListInstancesHandler(svcs).Execute)
		r.Route("/{serviceId}", func(r chi.Router) {
			r.Get("/", handlers.NewGetInstanceHandler(svcs).Execute)
			r.Get("/transitions", handlers.NewListTransitionsHandler(svcs).Execute)
		})
	})
}
