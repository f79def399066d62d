package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rrrobertsson/airmango-admin-panel/internal/metrics"
)

func TestRouterHealthAndMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics.NewUploadMetrics(registry).IncFallback()
	e := NewRouter(RouterConfig{AllowOrigins: []string{"*"}, Logger: zerolog.Nop(), Gatherer: registry})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id header")
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "fallback") {
		t.Fatalf("expected fallback counter in metrics output:\n%s", rec.Body.String())
	}
}

func TestRouterKeepsCallerRequestID(t *testing.T) {
	e := NewRouter(RouterConfig{Logger: zerolog.Nop()})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestSwaggerDocumentServedAsJSON(t *testing.T) {
	e := NewRouter(RouterConfig{Logger: zerolog.Nop()})
	RegisterSwagger(e, "../../../docs/swagger.yaml")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode swagger json: %v", err)
	}
	for _, path := range []string{"/api/v1/trips", "/api/v1/trips/{id}", "/api/v1/uploads/bulk"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Fatalf("swagger document is missing %s", path)
		}
	}
}

func TestSwaggerMissingDocument(t *testing.T) {
	e := NewRouter(RouterConfig{Logger: zerolog.Nop()})
	RegisterSwagger(e, "does-not-exist.yaml")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
