// Package txctx carries request-scoped fields (request id, auth identity, ...)
// through a request's call graph without threading them as parameters.
//
// A frame lives on a context.Context. Everything that receives the request's
// context, including goroutines started with it, sees the same frame. Code
// that drops the context (context.Background()) leaves the frame behind; that
// is the propagation boundary.
//
//	err := txctx.RunInNewFrame(ctx, map[string]any{"job": id}, func(ctx context.Context) error {
//	    txctx.Set(ctx, "attempt", 2)
//	    return work(ctx)
//	})
package txctx

import (
	"context"
	"maps"
	"sync"
)

// Well-known field names.
const (
	FieldRequestID = "requestId"
	FieldAuth      = "auth"
)

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const frameKey contextKey = "txctx_frame"

// frame is one level of request-scoped fields. Children copy the parent's
// fields at creation and never write back.
type frame struct {
	mu     sync.RWMutex
	fields map[string]any
}

func fromContext(ctx context.Context) *frame {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(frameKey).(*frame)
	return f
}

// NewFrame returns a context carrying a new frame. The frame starts with a
// snapshot of the enclosing frame's fields (if any) overlaid with fields.
func NewFrame(ctx context.Context, fields map[string]any) context.Context {
	f := &frame{fields: make(map[string]any, len(fields))}
	if parent := fromContext(ctx); parent != nil {
		parent.mu.RLock()
		maps.Copy(f.fields, parent.fields)
		parent.mu.RUnlock()
	}
	maps.Copy(f.fields, fields)
	return context.WithValue(ctx, frameKey, f)
}

// RunInNewFrame runs fn with a new frame active for its whole extent. The
// frame is unreachable once fn returns unless fn leaked its context.
func RunInNewFrame(ctx context.Context, fields map[string]any, fn func(ctx context.Context) error) error {
	return fn(NewFrame(ctx, fields))
}

// Get returns the value of key in the innermost frame of ctx.
func Get(ctx context.Context, key string) (any, bool) {
	f := fromContext(ctx)
	if f == nil {
		return nil, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.fields[key]
	return v, ok
}

// Set stores value under key in the innermost frame of ctx. It reports false
// when ctx carries no frame.
func Set(ctx context.Context, key string, value any) bool {
	f := fromContext(ctx)
	if f == nil {
		return false
	}
	f.mu.Lock()
	f.fields[key] = value
	f.mu.Unlock()
	return true
}

// Fields returns a copy of every field visible in ctx, or nil without a frame.
func Fields(ctx context.Context) map[string]any {
	f := fromContext(ctx)
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.fields) == 0 {
		return nil
	}
	return maps.Clone(f.fields)
}
