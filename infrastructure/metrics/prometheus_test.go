package metrics

import (
	"errors"
	"testing"
	"time"

	"tasktrack/domain/task"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordPipelineOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.HandlerFinished("task.created", "count", 3*time.Millisecond, nil)
	m.HandlerFinished("task.created", "count", time.Millisecond, errors.New("boom"))
	m.EventUnhandled("task.renamed")
	m.UnitOfWorkCommitted(5*time.Millisecond, 4)
	m.UnitOfWorkRolledBack(time.Millisecond, task.NewConcurrentModificationError("task-1"))
	m.UnitOfWorkRolledBack(time.Millisecond, errors.New("boom"))
	m.OutboxPublished("task.created")
	m.OutboxFailed("task.created")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerErrors.WithLabelValues("task.created", "count")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsUnhandled.WithLabelValues("task.renamed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.uowEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uowConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxPublished.WithLabelValues("task.created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxFailed.WithLabelValues("task.created")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["tasktrack_event_handler_duration_seconds"])
	assert.True(t, names["tasktrack_unit_of_work_duration_seconds"])
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
