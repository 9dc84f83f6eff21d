package shared

import "context"

// EventSource is an aggregate handed to the unit of work: it gives up its pending
// events and is cleared once they are committed.
type EventSource interface {
	Identifiable
	DomainEvents() []DomainEvent
	ClearDomainEvents()
}

// UnitOfWork 管理事务边界与聚合事件收集。
// Execute 运行业务函数后调用 SaveChanges：持久化 → 收集事件 → 分发 → 提交，
// 任一步骤失败则回滚并原样返回错误。UnitOfWork 内部不做重试。
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	SaveChanges(ctx context.Context) (bool, error)
	RegisterNew(aggregate EventSource)
	RegisterDirty(aggregate EventSource)
	RegisterRemoved(aggregate EventSource)
	// Lookup returns the tracked aggregate with the given identity, if any.
	Lookup(key IdentityKey) (EventSource, bool)
}

type UnitOfWorkFactory interface {
	New() UnitOfWork
}

// Session is the persistence provider's transactional envelope.
type Session interface {
	Begin(ctx context.Context) error
	// SaveChanges writes staged changes and reports whether any row was affected.
	SaveChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type SessionFactory interface {
	NewSession() Session
}

// EventDispatcher delivers events to their handlers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []DomainEvent) error
}

type OutboxRepository interface {
	SaveEvent(ctx context.Context, event DomainEvent) error
}

type uowKey struct{}

// ContextWithUnitOfWork attaches the running unit of work so handlers can enlist aggregates.
func ContextWithUnitOfWork(ctx context.Context, uow UnitOfWork) context.Context {
	return context.WithValue(ctx, uowKey{}, uow)
}

func UnitOfWorkFromContext(ctx context.Context) (UnitOfWork, bool) {
	uow, ok := ctx.Value(uowKey{}).(UnitOfWork)
	return uow, ok
}
