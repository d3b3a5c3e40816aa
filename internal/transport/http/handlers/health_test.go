package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestReadinessReportsFailingCheck(t *testing.T) {
	h := NewHealthHandler(
		WithReadinessCheck("store", func(context.Context) error { return nil }),
		WithReadinessCheck("redis", func(context.Context) error { return errors.New("down") }),
	)
	r := gin.New()
	r.GET("/ready", h.Readiness)
	r.GET("/health", h.Status)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	resp := decode[ReadinessResponse](t, rec)
	if resp.Checks["store"] != "ok" || resp.Checks["redis"] == "ok" {
		t.Fatalf("unexpected checks %+v", resp.Checks)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
