package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestHostPort(t *testing.T) {
	tests := map[string]string{
		"tempo:4318":         "tempo:4318",
		"http://tempo:4318":  "tempo:4318",
		"https://collector":  "collector:4318",
		"  localhost:4318  ": "localhost:4318",
	}
	for in, want := range tests {
		if got := hostPort(in); got != want {
			t.Errorf("hostPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "tiskarna", "")
	if err != nil || shutdown != nil {
		t.Errorf("expected tracing to be disabled, got shutdown=%t, err=%v", shutdown != nil, err)
	}
}

func TestMiddlewarePassesThrough(t *testing.T) {
	var sawSpan bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = trace.SpanFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/orders/1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 to pass through, got %d", rec.Code)
	}
	if !sawSpan {
		t.Error("expected a span in the request context")
	}
}
