/*
Package eventing delivers domain events to the handlers registered for their exact type.

Dispatch is sequential and fast-fail: handlers run one at a time in registration order,
and the first handler error stops the whole batch so the enclosing unit of work rolls back.
*/
package eventing

import (
	"context"
	"time"

	"tasktrack/domain/shared"
	"tasktrack/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "tasktrack/infrastructure/eventing"

// Observer receives dispatch outcomes. The Prometheus collector in
// infrastructure/metrics implements it.
type Observer interface {
	EventUnhandled(eventName string)
	HandlerFinished(eventName, handler string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) EventUnhandled(string)                                {}
func (nopObserver) HandlerFinished(string, string, time.Duration, error) {}

type Dispatcher struct {
	registry *shared.HandlerRegistry
	logger   *zap.Logger
	tracer   trace.Tracer
	observer Observer
}

type Option func(*Dispatcher)

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) {
		if tp != nil {
			d.tracer = tp.Tracer(tracerName)
		}
	}
}

func NewDispatcher(registry *shared.HandlerRegistry, opts ...Option) *Dispatcher {
	if registry == nil {
		registry = shared.NewHandlerRegistry()
	}
	d := &Dispatcher{
		registry: registry,
		logger:   logger.With(zap.String("component", "event_dispatcher")),
		tracer:   otel.Tracer(tracerName),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers events in order. It returns the context error if ctx is done
// before an event or handler starts, and a *shared.HandlerInvocationError wrapping
// the handler's own error on the first failure. Handlers that already ran are not undone.
func (d *Dispatcher) Dispatch(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		handlers := d.registry.Handlers(event)
		if len(handlers) == 0 {
			d.logger.Debug("No handlers registered for event",
				zap.String("event", event.EventName()),
				zap.String("event_id", event.EventID()))
			d.observer.EventUnhandled(event.EventName())
			continue
		}

		if err := d.dispatchEvent(ctx, event, handlers); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, event shared.DomainEvent, handlers []shared.EventHandler) error {
	ctx, span := d.tracer.Start(ctx, "eventing.dispatch", trace.WithAttributes(
		attribute.String("event.name", event.EventName()),
		attribute.String("event.id", event.EventID()),
		attribute.String("aggregate.type", event.AggregateType()),
		attribute.String("aggregate.id", event.AggregateID()),
		attribute.Int("handlers", len(handlers)),
	))
	defer span.End()

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "canceled")
			return err
		}

		start := time.Now()
		err := h.Handle(ctx, event)
		elapsed := time.Since(start)
		d.observer.HandlerFinished(event.EventName(), h.Name(), elapsed, err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, h.Name())
			d.logger.Warn("Event handler failed",
				zap.String("event", event.EventName()),
				zap.String("event_id", event.EventID()),
				zap.String("handler", h.Name()),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			return &shared.HandlerInvocationError{
				EventName: event.EventName(),
				EventID:   event.EventID(),
				Handler:   h.Name(),
				Err:       err,
			}
		}

		d.logger.Debug("Event handled",
			zap.String("event", event.EventName()),
			zap.String("handler", h.Name()),
			zap.Duration("elapsed", elapsed))
	}
	return nil
}

var _ shared.EventDispatcher = (*Dispatcher)(nil)
