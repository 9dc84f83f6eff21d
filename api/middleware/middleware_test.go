package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tasktrack/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newEngine(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	original := logger.Get()
	t.Cleanup(func() { logger.Set(original) })
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Set(zap.New(core))

	engine := gin.New()
	engine.Use(RequestIDMiddleware(), RecoveryMiddleware(), LoggingMiddleware("/health/live"))
	engine.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/tasks", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	engine.GET("/boom", func(*gin.Context) { panic("boom") })
	return engine, logs
}

func TestLoggingSkipsProbes(t *testing.T) {
	engine, logs := newEngine(t)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Zero(t, logs.Len())

	req := httptest.NewRequest(http.MethodGet, "/tasks?limit=5", nil)
	req.Header.Set(RequestIDHeader, "req-9")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/tasks?limit=5", fields["path"])
	assert.Equal(t, "req-9", fields["request_id"])
}

func TestRecoveryReturns500(t *testing.T) {
	engine, logs := newEngine(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}
