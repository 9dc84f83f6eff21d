package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tasktrack/api/health"
	"tasktrack/api/middleware"
	"tasktrack/config"
	"tasktrack/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, dbErr error) *Router {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Name: "tasktrack", Version: "test", Env: "test"}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.OutboxPublished("task.created")

	checks := map[string]health.Checker{
		"database": health.CheckerFunc(func(context.Context) error { return dbErr }),
	}
	return NewRouter(cfg, health.NewController(cfg, checks), reg)
}

func serve(r *Router, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body health.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
}

func TestReadinessFailsWhenDependencyDown(t *testing.T) {
	r := newTestRouter(t, errors.New("connection refused"))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database")

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tasktrack_outbox_published_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := serve(r, req)
	assert.Equal(t, "req-42", rec.Header().Get(middleware.RequestIDHeader))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}
