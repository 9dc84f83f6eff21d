/*
Package application holds what the application services share: running a command
in a unit of work and the caller-side retry around it.

Important: Application services do not publish events directly!
- The unit of work collects events from registered aggregates and dispatches them
  to in-process handlers before commit
- Handlers record integration events in the outbox inside the same transaction
- The outbox worker publishes them asynchronously after commit
*/
package application

import (
	"context"

	"tasktrack/domain/shared"
)

// RetryFunc re-runs fn while it fails with a transient error.
type RetryFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// NoRetry runs fn once.
func NoRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// InUnitOfWork runs fn inside a fresh unit of work on every attempt, so aggregates
// are reloaded after a conflict.
func InUnitOfWork(ctx context.Context, uows shared.UnitOfWorkFactory, retry RetryFunc, fn func(ctx context.Context, uow shared.UnitOfWork) error) error {
	if retry == nil {
		retry = NoRetry
	}
	return retry(ctx, func(ctx context.Context) error {
		uow := uows.New()
		return uow.Execute(ctx, func(ctx context.Context) error {
			return fn(ctx, uow)
		})
	})
}

// PageLimit applies the default page size to an unset limit.
func PageLimit(limit, defaultLimit int) int {
	if limit == 0 {
		return defaultLimit
	}
	return limit
}
