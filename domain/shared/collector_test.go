package shared_test

import (
	"context"
	"reflect"
	"testing"

	"tasktrack/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raisedEvents(t *testing.T, w *widget, n int) []shared.DomainEvent {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, touch(w, i))
	}
	return w.DomainEvents()
}

func TestEventCollector_PreservesOrderAcrossAggregates(t *testing.T) {
	first := raisedEvents(t, newWidget("a"), 2)
	second := raisedEvents(t, newWidget("b"), 3)

	c := shared.NewEventCollector()
	c.AddEvents(first...)
	for _, e := range second {
		c.AddEvent(e)
	}

	got := c.GetEvents()
	require.Len(t, got, 5)
	assert.Equal(t, append(append([]shared.DomainEvent{}, first...), second...), got)
}

func TestEventCollector_SnapshotAndClear(t *testing.T) {
	events := raisedEvents(t, newWidget("a"), 2)
	c := shared.NewEventCollector()
	c.AddEvent(events[0])

	snapshot := c.GetEvents()
	c.AddEvent(events[1])
	assert.Len(t, snapshot, 1)
	assert.Equal(t, 2, c.Len())

	c.ClearEvents()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.GetEvents())

	c.ClearEvents()
	assert.Zero(t, c.Len())
}

type orderedRecorder struct {
	name  string
	calls *[]string
}

func (h orderedRecorder) Handle(_ context.Context, e *widgetTouched) error {
	*h.calls = append(*h.calls, h.name)
	return nil
}

func (h orderedRecorder) Name() string { return h.name }

func TestHandlerRegistry_ExactTypeInRegistrationOrder(t *testing.T) {
	reg := shared.NewHandlerRegistry()
	var calls []string
	require.NoError(t, shared.Subscribe[*widgetTouched](reg, orderedRecorder{name: "first", calls: &calls}))
	require.NoError(t, shared.Subscribe[*widgetTouched](reg, orderedRecorder{name: "second", calls: &calls}))
	require.NoError(t, shared.Subscribe[*partAdded](reg, shared.NewHandlerFunc("parts", func(context.Context, *partAdded) error { return nil })))

	events := raisedEvents(t, newWidget("a"), 1)
	handlers := reg.Handlers(events[0])
	require.Len(t, handlers, 2)
	for _, h := range handlers {
		require.NoError(t, h.Handle(context.Background(), events[0]))
	}
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.Len(t, reg.Handlers(&partAdded{}), 1)
	assert.Empty(t, reg.Handlers(nil))
	assert.ElementsMatch(t, []reflect.Type{reflect.TypeFor[*widgetTouched](), reflect.TypeFor[*partAdded]()}, reg.EventTypes())
}

type touchedEmbedder struct {
	widgetTouched
}

func TestHandlerRegistry_NoSubtypeMatching(t *testing.T) {
	reg := shared.NewHandlerRegistry()
	require.NoError(t, shared.Subscribe[*widgetTouched](reg, shared.NewHandlerFunc("touched", func(context.Context, *widgetTouched) error { return nil })))

	assert.Empty(t, reg.Handlers(&touchedEmbedder{}))
}

func TestHandlerRegistry_RejectsInvalidRegistrations(t *testing.T) {
	reg := shared.NewHandlerRegistry()
	h := shared.NewFuncHandler("audit", func(context.Context, shared.DomainEvent) error { return nil })

	require.NoError(t, reg.Register(reflect.TypeFor[*widgetTouched](), h))
	assert.Error(t, reg.Register(reflect.TypeFor[*widgetTouched](), h), "duplicate name")
	assert.Error(t, reg.Register(reflect.TypeFor[shared.DomainEvent](), h), "interface type")
	assert.Error(t, reg.Register(reflect.TypeFor[string](), h), "not an event")
	assert.Error(t, reg.Register(nil, h))
	assert.Error(t, reg.Register(reflect.TypeFor[*partAdded](), nil))
}
