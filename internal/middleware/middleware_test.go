package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpointThroughMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	GetHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health check returned %d; want %d", rec.Code, http.StatusOK)
	}
}

func TestMiddlewareInjectsTraceId(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	GetHandler(rec, req)

	if req.Header.Get("X-Trace-Id") == "" {
		t.Error("no trace id injected into the request")
	}
}

func TestMiddlewareKeepsCallerTraceId(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	rec := httptest.NewRecorder()

	GetHandler(rec, req)

	if got := req.Header.Get("X-Trace-Id"); got != "trace-123" {
		t.Errorf("trace id rewritten to %q; caller-supplied ids must survive", got)
	}
}
