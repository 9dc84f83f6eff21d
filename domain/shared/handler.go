package shared

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// EventHandler is the type-erased form stored in the registry.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	Name() string
}

// Handler handles one concrete event type.
type Handler[E DomainEvent] interface {
	Handle(ctx context.Context, event E) error
	Name() string
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[E DomainEvent] struct {
	name string
	fn   func(context.Context, E) error
}

func NewHandlerFunc[E DomainEvent](name string, fn func(context.Context, E) error) *HandlerFunc[E] {
	return &HandlerFunc[E]{name: name, fn: fn}
}

func (h *HandlerFunc[E]) Handle(ctx context.Context, event E) error { return h.fn(ctx, event) }
func (h *HandlerFunc[E]) Name() string                               { return h.name }

// FuncHandler adapts a function over any event to EventHandler.
type FuncHandler struct {
	name string
	fn   func(context.Context, DomainEvent) error
}

func NewFuncHandler(name string, fn func(context.Context, DomainEvent) error) *FuncHandler {
	return &FuncHandler{name: name, fn: fn}
}

func (h *FuncHandler) Handle(ctx context.Context, event DomainEvent) error { return h.fn(ctx, event) }
func (h *FuncHandler) Name() string                                        { return h.name }

type typedHandler[E DomainEvent] struct {
	inner Handler[E]
}

func (h typedHandler[E]) Handle(ctx context.Context, event DomainEvent) error {
	e, ok := event.(E)
	if !ok {
		return fmt.Errorf("handler %s received %T", h.inner.Name(), event)
	}
	return h.inner.Handle(ctx, e)
}

func (h typedHandler[E]) Name() string { return h.inner.Name() }

// HandlerRegistry maps an event's concrete type to its handlers in registration order.
// It is built once at startup and handed to the dispatcher.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[reflect.Type][]EventHandler)}
}

// Subscribe registers h for events whose runtime type is exactly E.
func Subscribe[E DomainEvent](r *HandlerRegistry, h Handler[E]) error {
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	return r.Register(reflect.TypeFor[E](), typedHandler[E]{inner: h})
}

// Register adds a type-erased handler for eventType.
func (r *HandlerRegistry) Register(eventType reflect.Type, handler EventHandler) error {
	if eventType == nil {
		return fmt.Errorf("event type cannot be nil")
	}
	if eventType.Kind() == reflect.Interface {
		return fmt.Errorf("event type %s must be concrete", eventType)
	}
	if !eventType.Implements(reflect.TypeFor[DomainEvent]()) {
		return fmt.Errorf("%s does not implement DomainEvent", eventType)
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.handlers[eventType] {
		if h.Name() == handler.Name() {
			return fmt.Errorf("handler %s already subscribed to %s", handler.Name(), eventType)
		}
	}

	r.handlers[eventType] = append(r.handlers[eventType], handler)
	return nil
}

// Handlers returns the handlers registered for the exact runtime type of event.
func (r *HandlerRegistry) Handlers(event DomainEvent) []EventHandler {
	if event == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	hs := r.handlers[reflect.TypeOf(event)]
	if len(hs) == 0 {
		return nil
	}
	out := make([]EventHandler, len(hs))
	copy(out, hs)
	return out
}

// EventTypes lists every type with at least one handler.
func (r *HandlerRegistry) EventTypes() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]reflect.Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
