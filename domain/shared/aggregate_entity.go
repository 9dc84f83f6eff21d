package shared

import "fmt"

// AggregateEntity is a child object inside an aggregate. It records the identity of
// its owning root and, once attached, raises events through that root so versioning
// and ordering stay at the aggregate boundary.
type AggregateEntity[ID comparable, RootID comparable] struct {
	Entity[ID]
	rootID RootID
	root   EventRaiser
}

func NewAggregateEntity[ID comparable, RootID comparable](id ID, rootID RootID) AggregateEntity[ID, RootID] {
	return AggregateEntity[ID, RootID]{
		Entity: NewEntity(id),
		rootID: rootID,
	}
}

func (e *AggregateEntity[ID, RootID]) AggregateRootID() RootID {
	return e.rootID
}

func (e *AggregateEntity[ID, RootID]) IsAttached() bool {
	return e.root != nil
}

// AttachTo binds the entity to a live root. The root's id must equal AggregateRootID.
func (e *AggregateEntity[ID, RootID]) AttachTo(root EventRaiser) error {
	if root == nil {
		return NewNotAssociatedError(fmt.Sprint(e.ID()))
	}
	rootID, ok := root.IdentityValue().(RootID)
	if !ok || rootID != e.rootID {
		return NewAggregateMismatchError(root.AggregateType(),
			fmt.Sprint(e.rootID), fmt.Sprint(root.IdentityValue()), "child entity attached to foreign root")
	}
	e.root = root
	return nil
}

func (e *AggregateEntity[ID, RootID]) Detach() {
	e.root = nil
}

// RaiseDomainEvent forwards to the attached root.
func (e *AggregateEntity[ID, RootID]) RaiseDomainEvent(event DomainEvent) error {
	if e.root == nil {
		return NewNotAssociatedError(fmt.Sprint(e.ID()))
	}
	return e.root.RaiseDomainEvent(event)
}

// Raise builds an event stamped by the attached root and raises it there.
func (e *AggregateEntity[ID, RootID]) Raise(build func(EventMeta) DomainEvent) error {
	if e.root == nil {
		return NewNotAssociatedError(fmt.Sprint(e.ID()))
	}
	meta, err := e.root.NextEventMeta()
	if err != nil {
		return err
	}
	return e.root.RaiseDomainEvent(build(meta))
}
