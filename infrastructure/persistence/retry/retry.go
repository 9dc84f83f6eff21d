/*
Package retry re-runs a whole unit of work when it lost an optimistic concurrency race
or hit a transient database lock. The unit of work itself never retries; the caller
wraps the operation and every attempt starts a fresh unit of work.
*/
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"tasktrack/config"
	"tasktrack/domain/project"
	"tasktrack/domain/task"
	"tasktrack/pkg/logger"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Config struct {
	Enabled                       bool
	MaxAttempts                   int
	InitialDelay                  time.Duration
	MaxDelay                      time.Duration
	BackoffFactor                 float64
	JitterEnabled                 bool
	RetryOnConcurrentModification bool
	RetryOnDeadlock               bool
	RetryOnLockTimeout            bool
	// RetryPredicate marks additional errors as retryable.
	RetryPredicate func(error) bool
}

var DefaultConfig = Config{
	Enabled:                       true,
	MaxAttempts:                   3,
	InitialDelay:                  50 * time.Millisecond,
	MaxDelay:                      time.Second,
	BackoffFactor:                 2.0,
	JitterEnabled:                 true,
	RetryOnConcurrentModification: true,
	RetryOnDeadlock:               true,
	RetryOnLockTimeout:            true,
}

func FromAppConfig(appConfig *config.Config) Config {
	rc := appConfig.Database.Retry
	return Config{
		Enabled:                       rc.Enabled,
		MaxAttempts:                   rc.MaxAttempts,
		InitialDelay:                  rc.InitialDelay,
		MaxDelay:                      rc.MaxDelay,
		BackoffFactor:                 rc.BackoffFactor,
		JitterEnabled:                 rc.JitterEnabled,
		RetryOnConcurrentModification: rc.RetryOnConcurrentModification,
		RetryOnDeadlock:               rc.RetryOnDeadlock,
		RetryOnLockTimeout:            rc.RetryOnLockTimeout,
	}
}

// ExponentialBackoffWithJitter returns the pause before attempt+1. Jitter spreads the
// delay over ±20%.
func ExponentialBackoffWithJitter(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.JitterEnabled {
		delay *= 0.8 + rand.Float64()*0.4
	}
	return time.Duration(max(delay, 0))
}

type reason string

const (
	reasonNone       reason = ""
	reasonConflict   reason = "concurrent_modification"
	reasonDeadlock   reason = "deadlock"
	reasonLock       reason = "lock_timeout"
	reasonConnection reason = "connection"
)

// classify names the transient condition behind err, if any.
func classify(err error) reason {
	if errors.Is(err, task.ErrConcurrentModification) || errors.Is(err, project.ErrConcurrentModification) {
		return reasonConflict
	}

	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1213: // ER_LOCK_DEADLOCK
			return reasonDeadlock
		case 1205: // ER_LOCK_WAIT_TIMEOUT
			return reasonLock
		}
		return reasonNone
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return reasonDeadlock
		case "55P03": // lock_not_available
			return reasonLock
		}
		return reasonNone
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) {
		return reasonConnection
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadlock"):
		return reasonDeadlock
	case strings.Contains(msg, "lock wait timeout"), strings.Contains(msg, "database is locked"):
		return reasonLock
	case strings.Contains(msg, "connection") && strings.Contains(msg, "lost"):
		return reasonConnection
	}
	return reasonNone
}

func IsRetryableError(err error, cfg Config) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if cfg.RetryPredicate != nil && cfg.RetryPredicate(err) {
		return true
	}
	switch classify(err) {
	case reasonConflict:
		return cfg.RetryOnConcurrentModification
	case reasonDeadlock:
		return cfg.RetryOnDeadlock
	case reasonLock:
		return cfg.RetryOnLockTimeout
	case reasonConnection:
		return true
	}
	return false
}

// ExecuteWithRetry runs fn until it succeeds, fails with a non-retryable error or
// runs out of attempts. fn must start a fresh unit of work each time.
func ExecuteWithRetry(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if !cfg.Enabled || cfg.MaxAttempts <= 1 {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts || !IsRetryableError(lastErr, cfg) {
			break
		}

		delay := ExponentialBackoffWithJitter(attempt, cfg)
		logger.FromContext(ctx).Debug("Retrying unit of work",
			zap.Int("attempt", attempt),
			zap.String("reason", string(classify(lastErr))),
			zap.Duration("delay", delay),
			zap.Error(lastErr))
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}
