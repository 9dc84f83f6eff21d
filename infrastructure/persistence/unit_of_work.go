package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasktrack/domain/shared"
	"tasktrack/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxDispatchRounds bounds how often handlers may cause further persistence and
// dispatch inside one SaveChanges call.
const DefaultMaxDispatchRounds = 8

var (
	ErrDispatchRoundsExceeded = errors.New("event dispatch did not settle")
	// ErrUnitOfWorkDone is returned by a unit of work whose SaveChanges already failed.
	// Handlers may have mutated tracked aggregates before the rollback, so the caller
	// must start over with a fresh unit of work.
	ErrUnitOfWorkDone = errors.New("unit of work already rolled back")
)

const tracerName = "tasktrack/infrastructure/persistence"

// Observer receives unit-of-work outcomes.
type Observer interface {
	UnitOfWorkCommitted(elapsed time.Duration, events int)
	UnitOfWorkRolledBack(elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) UnitOfWorkCommitted(time.Duration, int)    {}
func (nopObserver) UnitOfWorkRolledBack(time.Duration, error) {}

// UnitOfWork binds one session, one event collector and one dispatcher call to a
// business operation. It is used by a single goroutine and discarded afterwards.
type UnitOfWork struct {
	session    shared.Session
	dispatcher shared.EventDispatcher
	collector  *shared.EventCollector

	tracked   []shared.EventSource
	index     map[shared.IdentityKey]int
	collected map[string]struct{}
	// dispatched counts the collector events already delivered in the current transaction.
	dispatched int
	failed     bool

	maxRounds int
	logger    *zap.Logger
	tracer    trace.Tracer
	observer  Observer
}

type Option func(*UnitOfWork)

func WithMaxDispatchRounds(n int) Option {
	return func(u *UnitOfWork) {
		if n > 0 {
			u.maxRounds = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(u *UnitOfWork) {
		if l != nil {
			u.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(u *UnitOfWork) {
		if o != nil {
			u.observer = o
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(u *UnitOfWork) {
		if tp != nil {
			u.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewUnitOfWork creates a new UnitOfWork instance
func NewUnitOfWork(session shared.Session, dispatcher shared.EventDispatcher, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		session:    session,
		dispatcher: dispatcher,
		collector:  shared.NewEventCollector(),
		index:      make(map[shared.IdentityKey]int),
		collected:  make(map[string]struct{}),
		maxRounds:  DefaultMaxDispatchRounds,
		logger:     logger.Named("unit_of_work"),
		tracer:     otel.Tracer(tracerName),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Collector exposes the event buffer of this unit of work.
func (u *UnitOfWork) Collector() *shared.EventCollector {
	return u.collector
}

// Execute binds the session and this unit of work into ctx, runs fn and then saves.
// If fn fails nothing is persisted and its error is returned as is.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if u.failed {
		return ErrUnitOfWorkDone
	}
	ctx = u.bind(ctx)
	if err := fn(ctx); err != nil {
		return err
	}
	_, err := u.SaveChanges(ctx)
	return err
}

func (u *UnitOfWork) bind(ctx context.Context) context.Context {
	if SessionFromContext(ctx) != u.session {
		ctx = ContextWithSession(ctx, u.session)
	}
	if cur, ok := shared.UnitOfWorkFromContext(ctx); !ok || cur != shared.UnitOfWork(u) {
		ctx = shared.ContextWithUnitOfWork(ctx, u)
	}
	return ctx
}

// SaveChanges runs begin, persist, collect, dispatch and commit. Handlers run inside the
// transaction; when they stage more changes or raise more events on tracked aggregates
// the persist/collect/dispatch steps repeat until nothing new appears.
//
// On failure the transaction is rolled back and the original error is returned. The
// collector and the aggregates keep their events; they are cleared only after commit.
// A failed unit of work is finished: later calls return ErrUnitOfWorkDone.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (bool, error) {
	if u.failed {
		return false, ErrUnitOfWorkDone
	}
	ctx = u.bind(ctx)
	ctx, span := u.tracer.Start(ctx, "uow.save_changes")
	defer span.End()
	start := time.Now()

	if err := u.session.Begin(ctx); err != nil {
		u.failed = true
		u.fail(span, start, err)
		return false, err
	}

	changed, err := u.persistAndDispatch(ctx)
	if err != nil {
		u.rollback(ctx, err)
		u.fail(span, start, err)
		return false, err
	}

	if err := u.session.Commit(ctx); err != nil {
		u.rollback(ctx, err)
		u.fail(span, start, err)
		return false, err
	}

	events := u.collector.Len()
	u.collector.ClearEvents()
	for _, agg := range u.tracked {
		agg.ClearDomainEvents()
	}
	u.collected = make(map[string]struct{})
	u.dispatched = 0

	span.SetAttributes(attribute.Bool("changed", changed), attribute.Int("events", events))
	u.observer.UnitOfWorkCommitted(time.Since(start), events)
	u.logger.Debug("Unit of work committed",
		zap.Bool("changed", changed),
		zap.Int("events", events),
		zap.Duration("elapsed", time.Since(start)))
	return changed, nil
}

func (u *UnitOfWork) persistAndDispatch(ctx context.Context) (bool, error) {
	changed := false
	for round := 1; ; round++ {
		if round > u.maxRounds {
			return changed, fmt.Errorf("%w after %d rounds", ErrDispatchRoundsExceeded, u.maxRounds)
		}

		c, err := u.session.SaveChanges(ctx)
		if err != nil {
			return changed, err
		}
		changed = changed || c

		u.collectEvents()
		pending := u.collector.GetEvents()[u.dispatched:]
		if len(pending) == 0 {
			return changed, nil
		}

		if u.dispatcher != nil {
			if err := u.dispatcher.Dispatch(ctx, pending); err != nil {
				return changed, err
			}
		}
		u.dispatched += len(pending)
	}
}

// collectEvents copies pending events from tracked aggregates into the collector in
// registration order, skipping events collected before.
func (u *UnitOfWork) collectEvents() {
	for _, agg := range u.tracked {
		for _, e := range agg.DomainEvents() {
			if _, seen := u.collected[e.EventID()]; seen {
				continue
			}
			u.collected[e.EventID()] = struct{}{}
			u.collector.AddEvent(e)
		}
	}
}

func (u *UnitOfWork) rollback(ctx context.Context, cause error) {
	// The transaction must end even if ctx was canceled.
	if err := u.session.Rollback(context.WithoutCancel(ctx)); err != nil {
		u.logger.Error("Rollback failed",
			zap.NamedError("cause", cause),
			zap.Error(err))
	}
	u.failed = true
}

func (u *UnitOfWork) fail(span trace.Span, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	u.observer.UnitOfWorkRolledBack(time.Since(start), err)
	u.logger.Debug("Unit of work rolled back",
		zap.Int("pending_events", u.collector.Len()),
		zap.Error(err))
}

// RegisterNew registers a newly created aggregate root for event collection
func (u *UnitOfWork) RegisterNew(aggregate shared.EventSource) {
	u.track(aggregate)
}

// RegisterDirty registers a modified aggregate root for event collection
func (u *UnitOfWork) RegisterDirty(aggregate shared.EventSource) {
	u.track(aggregate)
}

// RegisterRemoved registers a deleted aggregate root for event collection
func (u *UnitOfWork) RegisterRemoved(aggregate shared.EventSource) {
	u.track(aggregate)
}

func (u *UnitOfWork) track(aggregate shared.EventSource) {
	if aggregate == nil {
		return
	}
	key := shared.KeyOf(aggregate)
	if i, ok := u.index[key]; ok {
		if u.tracked[i] != aggregate {
			u.logger.Warn("Second instance of a tracked aggregate ignored", zap.Stringer("aggregate", key))
		}
		return
	}
	u.index[key] = len(u.tracked)
	u.tracked = append(u.tracked, aggregate)
}

func (u *UnitOfWork) Lookup(key shared.IdentityKey) (shared.EventSource, bool) {
	i, ok := u.index[key]
	if !ok {
		return nil, false
	}
	return u.tracked[i], true
}

// Compile-time check that UnitOfWork implements shared.UnitOfWork
var _ shared.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWorkFactory creates one UnitOfWork per operation, each with a fresh session.
type UnitOfWorkFactory struct {
	sessions   shared.SessionFactory
	dispatcher shared.EventDispatcher
	opts       []Option
}

func NewUnitOfWorkFactory(sessions shared.SessionFactory, dispatcher shared.EventDispatcher, opts ...Option) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		sessions:   sessions,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	return NewUnitOfWork(f.sessions.NewSession(), f.dispatcher, f.opts...)
}

var _ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
