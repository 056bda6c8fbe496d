package httpx

import (
	"encoding/json"
	"net/http"
)

// ContentTypeJSON is the default content type for API responses.
const ContentTypeJSON = "application/json; charset=utf-8"

// JSON writes v as JSON with the given status code. Content-Type and
// X-Content-Type-Options headers are set automatically. Encoding errors are
// silently discarded; use this for handler responses, not for streaming.
func JSON(w http.ResponseWriter, status int, v any) {
	JSONAs(w, ContentTypeJSON, status, v)
}

// JSONAs is JSON with an explicit media type, e.g. application/health+json.
func JSONAs(w http.ResponseWriter, contentType string, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError writes a standard {"error": message} JSON response.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
