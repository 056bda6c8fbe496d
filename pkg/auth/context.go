package auth

import (
	"context"
	"errors"
)

type contextKey string

const identityKey contextKey = "identity"

// ErrUnauthenticated is returned when no identity exists in the request context.
// Handlers should return 401 when this error occurs.
var ErrUnauthenticated = errors.New("no authenticated identity in context")

// Identity is the operator a session belongs to.
type Identity struct {
	Subject string `json:"sub"`
	Name    string `json:"name,omitempty"`
}

// IdentityFromCtx returns the identity RequireAuth attached to ctx.
func IdentityFromCtx(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.Subject == "" {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// WithIdentity returns a new context with id attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
