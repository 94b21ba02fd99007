package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func serveWithID(t *testing.T, header string) (ctxID, respID string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	if header != "" {
		req.Header.Set(RequestIDHeader, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(RequestIDHeader)
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "generated when missing", header: ""},
		{name: "client id kept", header: "job-42.retry_1", keep: true},
		{name: "uuid kept", header: "0f8fad5b-d9cb-469f-a165-70867728950e", keep: true},
		{name: "spaces replaced", header: "has space"},
		{name: "control characters replaced", header: "abc\x00def"},
		{name: "oversized replaced", header: strings.Repeat("a", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctxID, respID := serveWithID(t, tt.header)
			if ctxID == "" || ctxID != respID {
				t.Fatalf("context id %q, response id %q", ctxID, respID)
			}
			if tt.keep {
				if respID != tt.header {
					t.Errorf("got %q, want client id %q", respID, tt.header)
				}
				return
			}
			if _, err := uuid.Parse(respID); err != nil {
				t.Errorf("generated id %q is not a UUID: %v", respID, err)
			}
		})
	}
}

func TestRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		_, id := serveWithID(t, "")
		if seen[id] {
			t.Fatalf("duplicate request id %s", id)
		}
		seen[id] = true
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}
