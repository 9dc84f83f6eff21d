package shared_test

import (
	"errors"
	"testing"

	"tasktrack/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	shared.AggregateRoot[string]
	parts []*part
}

func newWidget(id string) *widget {
	return &widget{AggregateRoot: shared.NewAggregateRoot("widget", id)}
}

type gadget struct {
	shared.AggregateRoot[string]
}

func newGadget(id string) *gadget {
	return &gadget{AggregateRoot: shared.NewAggregateRoot("gadget", id)}
}

type part struct {
	shared.AggregateEntity[string, string]
}

type widgetTouched struct {
	shared.EventMeta
	n int
}

func (e *widgetTouched) EventName() string { return "widget.touched" }

type partAdded struct {
	shared.EventMeta
	partID string
}

func (e *partAdded) EventName() string { return "widget.part_added" }

func touch(w interface {
	Raise(func(shared.EventMeta) shared.DomainEvent) error
}, n int) error {
	return w.Raise(func(m shared.EventMeta) shared.DomainEvent { return &widgetTouched{EventMeta: m, n: n} })
}

func TestAggregateRoot_RaiseIncrementsVersionInOrder(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		w := newWidget("w-1")
		for i := 0; i < n; i++ {
			require.NoError(t, touch(w, i))
		}

		assert.Equal(t, n, w.Version())
		events := w.DomainEvents()
		require.Len(t, events, n)
		for i, e := range events {
			assert.Equal(t, i, e.(*widgetTouched).n)
			assert.Equal(t, i+1, e.AggregateVersion())
			assert.Equal(t, "w-1", e.AggregateID())
			assert.Equal(t, "widget", e.AggregateType())
			assert.NotEmpty(t, e.EventID())
			assert.Equal(t, "UTC", e.OccurredOn().Location().String())
		}
	}
}

func TestAggregateRoot_ClearKeepsVersion(t *testing.T) {
	w := newWidget("w-1")
	require.NoError(t, touch(w, 1))
	require.NoError(t, touch(w, 2))
	assert.Equal(t, 0, w.PersistedVersion())

	w.ClearDomainEvents()
	assert.Empty(t, w.DomainEvents())
	assert.Equal(t, 2, w.Version())
	assert.Equal(t, 2, w.PersistedVersion())

	require.NoError(t, touch(w, 3))
	assert.Equal(t, 3, w.Version())
	assert.Equal(t, 2, w.PersistedVersion())
}

func TestAggregateRoot_DomainEventsIsACopy(t *testing.T) {
	w := newWidget("w-1")
	require.NoError(t, touch(w, 1))

	events := w.DomainEvents()
	events[0] = nil
	assert.NotNil(t, w.DomainEvents()[0])
}

func TestAggregateRoot_RejectsForeignEvents(t *testing.T) {
	w := newWidget("w-1")
	other := newWidget("w-2")
	g := newGadget("w-1")

	foreignID, err := other.NextEventMeta()
	require.NoError(t, err)
	foreignType, err := g.NextEventMeta()
	require.NoError(t, err)
	stale, err := shared.NewEventMeta("widget", "w-1", 5)
	require.NoError(t, err)

	for name, meta := range map[string]shared.EventMeta{
		"foreign id":    foreignID,
		"foreign type":  foreignType,
		"wrong version": stale,
	} {
		t.Run(name, func(t *testing.T) {
			err := w.RaiseDomainEvent(&widgetTouched{EventMeta: meta})

			var mismatch *shared.AggregateMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.True(t, errors.Is(err, shared.ErrAggregateMismatch))
			assert.Equal(t, 0, w.Version())
			assert.Empty(t, w.DomainEvents())
		})
	}
}

func TestAggregateRoot_RejectsNilEvent(t *testing.T) {
	w := newWidget("w-1")
	err := w.RaiseDomainEvent(nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, 0, w.Version())
}

func TestAggregateRoot_RestoreStartsAtPersistedVersion(t *testing.T) {
	w := &widget{AggregateRoot: shared.RestoreAggregateRoot("widget", "w-1", 7)}
	assert.Equal(t, 7, w.Version())
	assert.Equal(t, 7, w.PersistedVersion())

	require.NoError(t, touch(w, 1))
	assert.Equal(t, 8, w.DomainEvents()[0].AggregateVersion())
}

func TestAggregateEntity_RaisesThroughRoot(t *testing.T) {
	w := newWidget("w-1")
	p := &part{AggregateEntity: shared.NewAggregateEntity("p-1", "w-1")}
	require.NoError(t, p.AttachTo(w))
	assert.True(t, p.IsAttached())

	require.NoError(t, touch(w, 1))
	require.NoError(t, p.Raise(func(m shared.EventMeta) shared.DomainEvent {
		return &partAdded{EventMeta: m, partID: p.ID()}
	}))
	require.NoError(t, touch(w, 2))

	events := w.DomainEvents()
	require.Len(t, events, 3)
	assert.IsType(t, &partAdded{}, events[1])
	assert.Equal(t, 2, events[1].AggregateVersion())
	assert.Equal(t, 3, w.Version())
}

func TestAggregateEntity_AttachMismatch(t *testing.T) {
	pairs := []struct{ childRoot, rootID string }{
		{"w-1", "w-2"},
		{"w-2", "w-1"},
		{"", "w-1"},
		{"W-1", "w-1"},
	}
	for _, tc := range pairs {
		p := &part{AggregateEntity: shared.NewAggregateEntity("p-1", tc.childRoot)}
		err := p.AttachTo(newWidget(tc.rootID))

		var mismatch *shared.AggregateMismatchError
		require.ErrorAs(t, err, &mismatch, "child root %q vs root %q", tc.childRoot, tc.rootID)
		assert.False(t, p.IsAttached())
	}
}

func TestAggregateEntity_AttachRejectsOtherIDType(t *testing.T) {
	p := &part{AggregateEntity: shared.NewAggregateEntity("p-1", "42")}
	intRoot := &struct{ shared.AggregateRoot[int] }{shared.NewAggregateRoot("counter", 42)}

	err := p.AttachTo(intRoot)
	assert.ErrorIs(t, err, shared.ErrAggregateMismatch)
}

func TestAggregateEntity_NotAssociated(t *testing.T) {
	p := &part{AggregateEntity: shared.NewAggregateEntity("p-1", "w-1")}

	err := p.Raise(func(m shared.EventMeta) shared.DomainEvent { return &partAdded{EventMeta: m} })
	var notAssociated *shared.NotAssociatedError
	require.ErrorAs(t, err, &notAssociated)
	assert.Equal(t, "p-1", notAssociated.EntityID)

	w := newWidget("w-1")
	require.NoError(t, p.AttachTo(w))
	p.Detach()
	assert.ErrorIs(t, p.RaiseDomainEvent(&partAdded{}), shared.ErrNotAssociated)
	assert.Equal(t, 0, w.Version())
}

func TestIdentity_EqualityByTypeAndID(t *testing.T) {
	a := newWidget("w-1")
	b := newWidget("w-1")
	c := newWidget("w-2")
	g := newGadget("w-1")

	assert.True(t, shared.SameIdentity(a, b))
	assert.False(t, shared.SameIdentity(a, c))
	assert.False(t, shared.SameIdentity(a, g))
	assert.Equal(t, shared.KeyOf(a), shared.KeyOf(b))
	assert.Equal(t, shared.KeyFor[*widget]("w-1"), shared.KeyOf(a))

	seen := map[shared.IdentityKey]int{}
	for _, w := range []shared.Identifiable{a, b, c, g} {
		seen[shared.KeyOf(w)]++
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, 2, seen[shared.KeyOf(a)])
}

func TestIdentity_TransientEntities(t *testing.T) {
	a := newWidget("")
	b := newWidget("")
	assert.True(t, a.IsTransient())
	assert.False(t, shared.SameIdentity(a, b))
	assert.True(t, shared.SameIdentity(a, a))

	require.NoError(t, a.AssignID("w-9"))
	assert.Equal(t, "w-9", a.ID())
	assert.ErrorIs(t, a.AssignID("w-10"), shared.ErrIdentityAssigned)
	assert.Equal(t, "w-9", a.ID())
}
