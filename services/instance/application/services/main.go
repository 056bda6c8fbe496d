package services

import (
	"github.com/ghuser/appkit/pkg/app"
	"github.com/ghuser/appkit/pkg/cache"
	"github.com/ghuser/appkit/services/instance/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Instance *InstanceService
}

// New wires the instance application services with infrastructure from the
// Application container. The container's clients may not be connected yet;
// startup hooks verify them before the readiness gate lets requests through.
func New(a *app.Application) *Services {
	repo := postgres.NewTransitionRepository(a.Db, a.EventBus)
	var instanceCache *cache.InstanceCache
	if a.Redis != nil {
		instanceCache = cache.NewInstanceCache(a.Redis)
	}
	return &Services{
		Instance: NewInstanceService(repo, instanceCache, a.Logger),
	}
}
