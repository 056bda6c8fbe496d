package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/appkit/pkg/cache"
	"github.com/ghuser/appkit/pkg/database"
	"github.com/ghuser/appkit/pkg/events"
	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
)

// Application holds shared infrastructure dependencies for all services.
// Pass it to each service's route function during server initialization.
//
// Clients are constructed before startup and verified by the lifecycle's
// startup hooks; handlers behind the readiness gate can use them freely.
//
// Logging: use the *Context methods so trace ids and the request frame
// (requestId, auth) are attached:
//
//	app.Logger.InfoContext(ctx, "instance listed", "count", n)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Lifecycle    *lifecycle.App
	Db           *database.Database
	Logger       logger.Logger
	EventBus     *events.EventBus
	Redis        *cache.RedisClient
	SessionStore sessions.Store // Redis-backed session store; nil in worker process
	ServiceName  string
	ServiceID    string
}
