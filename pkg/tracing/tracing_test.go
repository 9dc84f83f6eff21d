package tracing

import (
	"bytes"
	"testing"

	"tasktrack/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledIsNoop(t *testing.T) {
	tp, shutdown, err := Init(config.TracingConfig{}, Service{Name: "tasktrack"})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(t.Context(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(t.Context()))
}

func TestInitStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := Init(
		config.TracingConfig{Enabled: true, Exporter: ExporterStdout, SampleRatio: 1},
		Service{Name: "tasktrack", Version: "test"},
		WithWriter(&buf),
	)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(t.Context(), "uow.commit")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, shutdown(t.Context()))
	assert.Contains(t, buf.String(), "uow.commit")
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	_, _, err := Init(config.TracingConfig{Enabled: true, Exporter: "jaeger"}, Service{})
	require.Error(t, err)
}

func TestSampleRatioIsClamped(t *testing.T) {
	assert.Equal(t, 0.0, sampleRatio(-1))
	assert.Equal(t, 1.0, sampleRatio(3))
	assert.Equal(t, 0.5, sampleRatio(0.5))
}
