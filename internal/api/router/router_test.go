package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cuongbtq/employee-ingest/internal/api/handler"
	"github.com/cuongbtq/employee-ingest/internal/notification"
)

type fakeDB struct {
	err error
}

func (f fakeDB) HealthCheck(context.Context) error {
	return f.err
}

func newTestRouter(db handler.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return SetupRouter(&handler.Dependencies{
		Logger:      logger,
		ServiceName: "employee-api-service",
		Registry:    notification.NewRegistry(logger),
		DB:          db,
	})
}

func TestSetupRouter_Health(t *testing.T) {
	r := newTestRouter(fakeDB{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"employee-api-service"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSetupRouter_Ready(t *testing.T) {
	tests := []struct {
		name       string
		db         handler.HealthChecker
		wantStatus int
	}{
		{name: "database reachable", db: fakeDB{}, wantStatus: http.StatusOK},
		{name: "database down", db: fakeDB{err: errors.New("connection refused")}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestRouter(tt.db).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestSetupRouter_Metrics(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(fakeDB{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "employee_ingest_subscribers")
}

func TestSetupRouter_RequestIDPropagates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	w := httptest.NewRecorder()
	newTestRouter(fakeDB{}).ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(fakeDB{}).ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/employees", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
