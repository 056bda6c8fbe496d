package txctx

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware opens a frame for each request, seeded with the chi request id.
// Mount it after middleware.RequestID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields := map[string]any{}
		if id := middleware.GetReqID(r.Context()); id != "" {
			fields[FieldRequestID] = id
		}
		next.ServeHTTP(w, r.WithContext(NewFrame(r.Context(), fields)))
	})
}
