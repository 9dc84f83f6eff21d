package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tasktrack/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observe swaps the global logger for an observer and restores it afterwards.
func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	original := log
	t.Cleanup(func() { log = original })
	core, logs := observer.New(level)
	Set(zap.New(core))
	return logs
}

func TestNilLoggerSafety(t *testing.T) {
	original := log
	defer func() { log = original }()
	Set(nil)

	Debug("dropped")
	Info("dropped")
	Warn("dropped")
	Error("dropped")
	assert.NotNil(t, With(zap.String("key", "value")))
	assert.NotNil(t, WithRequestID("req-1"))
	assert.NotNil(t, Named("outbox"))
	assert.NotNil(t, Get())
	assert.NoError(t, Sync())
}

func TestInitStdoutFormats(t *testing.T) {
	original := log
	defer func() { log = original }()

	for _, tc := range []struct {
		name string
		cfg  config.LogConfig
		env  string
	}{
		{"development console", config.LogConfig{Level: "debug", Output: "stdout"}, "development"},
		{"production json", config.LogConfig{Level: "info"}, "production"},
		{"explicit console", config.LogConfig{Level: "warn", Format: "console", Output: "stderr"}, "production"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, Init(&tc.cfg, tc.env))
			Info("logger initialized", zap.String("env", tc.env))
		})
	}
}

func TestInitRejectsBadOutput(t *testing.T) {
	original := log
	defer func() { log = original }()

	assert.Error(t, Init(&config.LogConfig{Output: "syslog"}, "production"))
	assert.Error(t, Init(&config.LogConfig{Output: "file"}, "production"))
}

func TestFileOutput(t *testing.T) {
	original := log
	defer func() { log = original }()

	path := filepath.Join(t.TempDir(), "logs", "tasktrack.log")
	require.NoError(t, Init(&config.LogConfig{Level: "info", Format: "json", Output: "file", FilePath: path}, "production"))

	Info("Task created", zap.String("task_id", "t-1"))
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"task_id":"t-1"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestDynamicLogLevel(t *testing.T) {
	original := log
	defer func() { log = original }()
	require.NoError(t, Init(&config.LogConfig{Level: "debug"}, "development"))
	defer UpdateLevel("info")

	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
	UpdateLevel("warn")
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))
}

func TestContextFields(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Equal(t, ctx, ContextWithRequestID(ctx, ""))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	FromContext(ctx).Info("with request")
	Named("outbox").Info("with component")
	FromContext(context.Background()).Info("bare")

	entries := logs.All()
	require.Len(t, entries, 3)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "outbox", entries[1].ContextMap()["component"])
	assert.Empty(t, entries[2].ContextMap())
}
