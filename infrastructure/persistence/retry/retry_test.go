package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasktrack/domain/project"
	"tasktrack/domain/task"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.JitterEnabled = false
	return cfg
}

func TestIsRetryableError(t *testing.T) {
	cfg := DefaultConfig

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"concurrent modification", task.NewConcurrentModificationError("task-1"), true},
		{"mysql deadlock", &mysqlDriver.MySQLError{Number: 1213}, true},
		{"mysql lock timeout", &mysqlDriver.MySQLError{Number: 1205}, true},
		{"mysql duplicate", &mysqlDriver.MySQLError{Number: 1062}, false},
		{"postgres serialization", &pgconn.PgError{Code: "40001"}, true},
		{"postgres deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"sqlite busy", errors.New("database is locked"), true},
		{"not found", task.NewTaskNotFoundError("task-1"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err, cfg))
		})
	}

	cfg.RetryOnConcurrentModification = false
	assert.False(t, IsRetryableError(task.NewConcurrentModificationError("task-1"), cfg))
}

func TestExecuteWithRetryRecoversFromConflict(t *testing.T) {
	attempts := 0
	err := ExecuteWithRetry(t.Context(), fastConfig(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return task.NewConcurrentModificationError("task-1")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := ExecuteWithRetry(t.Context(), fastConfig(), func(ctx context.Context) error {
		attempts++
		return task.NewTaskNotFoundError("task-1")
	})
	require.ErrorIs(t, err, task.ErrTaskNotFound)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetryGivesUp(t *testing.T) {
	attempts := 0
	err := ExecuteWithRetry(t.Context(), fastConfig(), func(ctx context.Context) error {
		attempts++
		return task.NewConcurrentModificationError("task-1")
	})
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	assert.Equal(t, DefaultConfig.MaxAttempts, attempts)
}

func TestExponentialBackoff(t *testing.T) {
	cfg := DefaultConfig
	cfg.JitterEnabled = false

	assert.Equal(t, time.Duration(0), ExponentialBackoffWithJitter(0, cfg))
	assert.Equal(t, 50*time.Millisecond, ExponentialBackoffWithJitter(1, cfg))
	assert.Equal(t, 100*time.Millisecond, ExponentialBackoffWithJitter(2, cfg))
	assert.Equal(t, time.Second, ExponentialBackoffWithJitter(10, cfg))

	cfg.JitterEnabled = true
	for range 20 {
		d := ExponentialBackoffWithJitter(1, cfg)
		assert.GreaterOrEqual(t, d, 40*time.Millisecond)
		assert.LessOrEqual(t, d, 60*time.Millisecond)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, reasonConflict, classify(project.NewConcurrentModificationError("p-1")))
	assert.Equal(t, reasonDeadlock, classify(&pgconn.PgError{Code: "40P01"}))
	assert.Equal(t, reasonLock, classify(&pgconn.PgError{Code: "55P03"}))
	assert.Equal(t, reasonNone, classify(&pgconn.PgError{Code: "23505"}))
	assert.Equal(t, reasonConnection, classify(errors.New("driver: connection lost")))
}

func TestRetryPredicate(t *testing.T) {
	transient := errors.New("broker hiccup")
	cfg := DefaultConfig
	assert.False(t, IsRetryableError(transient, cfg))

	cfg.RetryPredicate = func(err error) bool { return errors.Is(err, transient) }
	assert.True(t, IsRetryableError(transient, cfg))
	assert.False(t, IsRetryableError(context.Canceled, cfg))
}

func TestExecuteWithRetryDisabledRunsOnce(t *testing.T) {
	cfg := fastConfig()
	cfg.Enabled = false
	attempts := 0
	err := ExecuteWithRetry(t.Context(), cfg, func(ctx context.Context) error {
		attempts++
		return task.NewConcurrentModificationError("task-1")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetryHonoursCancel(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(t.Context())
	attempts := 0
	err := ExecuteWithRetry(ctx, cfg, func(ctx context.Context) error {
		attempts++
		cancel()
		return task.NewConcurrentModificationError("task-1")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
