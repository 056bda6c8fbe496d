package auth

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/ghuser/appkit/pkg/httpx"
	"github.com/ghuser/appkit/pkg/logger"
	"github.com/ghuser/appkit/pkg/txctx"
)

const (
	sessionName       = "appkit_session"
	sessionSubjectKey = "sub"
	sessionNameKey    = "name"
)

// RequireAuth is a chi middleware that enforces authentication via session cookies.
// The session identity is attached to the request context and, as "auth", to
// the request's txctx frame so every log line of the request carries it.
// Returns 401 Unauthorized if the session is missing, invalid, or has no subject.
func RequireAuth(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			session, err := store.Get(r, sessionName)
			if err != nil {
				log.WarnContext(ctx, "invalid session cookie", "error", err)
				httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			sub, _ := session.Values[sessionSubjectKey].(string)
			if sub == "" {
				log.WarnContext(ctx, "session missing subject")
				httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			name, _ := session.Values[sessionNameKey].(string)

			id := Identity{Subject: sub, Name: name}
			txctx.Set(ctx, txctx.FieldAuth, id)
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

// StartSession stores id in a new or existing session and writes the cookie.
func StartSession(w http.ResponseWriter, r *http.Request, store sessions.Store, id Identity) error {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return err
	}
	session.Values[sessionSubjectKey] = id.Subject
	session.Values[sessionNameKey] = id.Name
	return session.Save(r, w)
}

// EndSession deletes the session and expires the cookie.
func EndSession(w http.ResponseWriter, r *http.Request, store sessions.Store) error {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return err
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
