package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghuser/appkit/pkg/httpx"
)

func TestJSONWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(http.ResponseWriter)
		wantStatus int
		wantType   string
		wantKey    string
		wantValue  string
	}{
		{
			name:       "JSON",
			write:      func(w http.ResponseWriter) { httpx.JSON(w, http.StatusCreated, map[string]string{"id": "inst-1"}) },
			wantStatus: http.StatusCreated,
			wantType:   httpx.ContentTypeJSON,
			wantKey:    "id",
			wantValue:  "inst-1",
		},
		{
			name: "JSONAs health media type",
			write: func(w http.ResponseWriter) {
				httpx.JSONAs(w, httpx.ContentTypeHealth, http.StatusServiceUnavailable, map[string]string{"status": "fail"})
			},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "application/health+json",
			wantKey:    "status",
			wantValue:  "fail",
		},
		{
			name:       "JSONError",
			write:      func(w http.ResponseWriter) { httpx.JSONError(w, http.StatusBadRequest, "name is required") },
			wantStatus: http.StatusBadRequest,
			wantType:   httpx.ContentTypeJSON,
			wantKey:    "error",
			wantValue:  "name is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if xct := w.Header().Get("X-Content-Type-Options"); xct != "nosniff" {
				t.Errorf("expected nosniff, got %q", xct)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if body[tt.wantKey] != tt.wantValue {
				t.Errorf("body[%q] = %q, want %q", tt.wantKey, body[tt.wantKey], tt.wantValue)
			}
		})
	}
}
