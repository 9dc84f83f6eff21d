package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func selectTasks() (string, int64) { return "SELECT * FROM tasks", 3 }

func TestGormLoggerLevels(t *testing.T) {
	for _, tc := range []struct {
		name      string
		level     gormlogger.LogLevel
		wantInfo  bool
		wantWarn  bool
		wantTrace bool
	}{
		{"silent", gormlogger.Silent, false, false, false},
		{"warn", gormlogger.Warn, false, true, false},
		{"info", gormlogger.Info, true, true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logs := observe(t, zapcore.DebugLevel)
			l := NewGormLogger(tc.level)

			l.Info(context.Background(), "migrating %s", "tasks")
			l.Warn(context.Background(), "deprecated %s", "option")
			l.Trace(context.Background(), time.Now(), selectTasks, nil)

			assert.Equal(t, tc.wantInfo, logs.FilterMessage("migrating tasks").Len() == 1)
			assert.Equal(t, tc.wantWarn, logs.FilterMessage("deprecated option").Len() == 1)
			executed := logs.FilterMessage("SQL query executed")
			assert.Equal(t, tc.wantTrace, executed.Len() == 1)
			if tc.wantTrace {
				fields := executed.All()[0].ContextMap()
				assert.Equal(t, "SELECT * FROM tasks", fields["sql"])
				assert.Equal(t, int64(3), fields["rows"])
				assert.Equal(t, "gorm", fields["component"])
			}
		})
	}
}

func TestGormLoggerLogModeCopies(t *testing.T) {
	observe(t, zapcore.DebugLevel)
	l := NewGormLogger(gormlogger.Warn)

	louder, ok := l.LogMode(gormlogger.Info).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, louder.level)
	assert.Equal(t, gormlogger.Warn, l.level)
}

func TestGormLoggerSlowQueryCarriesRequestID(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)
	l := NewGormLogger(gormlogger.Warn, WithSlowThreshold(10*time.Millisecond))

	ctx := ContextWithRequestID(context.Background(), "req-7")
	l.Trace(ctx, time.Now().Add(-50*time.Millisecond), selectTasks, nil)

	slow := logs.FilterMessage("Slow SQL query").All()
	require.Len(t, slow, 1)
	assert.Equal(t, "req-7", slow[0].ContextMap()["request_id"])
}

func TestGormLoggerRecordNotFound(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	NewGormLogger(gormlogger.Error).Trace(context.Background(), time.Now(), selectTasks, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	NewGormLogger(gormlogger.Error, WithRecordNotFound()).Trace(context.Background(), time.Now(), selectTasks, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, logs.FilterMessage("Database operation failed").Len())

	NewGormLogger(gormlogger.Error).Trace(context.Background(), time.Now(), selectTasks, errors.New("deadlock"))
	assert.Equal(t, 2, logs.FilterMessage("Database operation failed").Len())
}
