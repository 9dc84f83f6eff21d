package persistence

import (
	"context"

	"tasktrack/domain/shared"
)

// sessionKey is the context key for storing the unit of work's session
type sessionKey struct{}

// SessionFromContext retrieves the session bound by the running unit of work.
// Returns nil if no unit of work is active.
func SessionFromContext(ctx context.Context) shared.Session {
	if s, ok := ctx.Value(sessionKey{}).(shared.Session); ok {
		return s
	}
	return nil
}

// ContextWithSession returns a new context with the session attached
func ContextWithSession(ctx context.Context, s shared.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionAs returns the bound session if it is of type S. Store implementations use it
// to find their own session type.
func SessionAs[S shared.Session](ctx context.Context) (S, bool) {
	s, ok := SessionFromContext(ctx).(S)
	return s, ok
}

// Tracked returns the aggregate of type T with the given id if the running unit of
// work already holds it, so a second load inside one operation yields the same instance.
func Tracked[T shared.EventSource](ctx context.Context, id any) (T, bool) {
	var zero T
	uow, ok := shared.UnitOfWorkFromContext(ctx)
	if !ok {
		return zero, false
	}
	src, ok := uow.Lookup(shared.KeyFor[T](id))
	if !ok {
		return zero, false
	}
	t, ok := src.(T)
	return t, ok
}
