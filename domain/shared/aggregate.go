package shared

import "fmt"

// AggregateRoot 聚合根基础结构
// 聚合根是聚合的入口点，维护一致性边界并记录领域事件。
// 具体聚合通过嵌入 AggregateRoot[ID] 获得标识、版本号与事件列表。
//
// Version 在每次发布事件时加一，因此 Version 恒等于聚合生命周期内发布过的事件总数。
type AggregateRoot[ID comparable] struct {
	Entity[ID]
	aggregateType string
	version       int
	events        []DomainEvent
}

// NewAggregateRoot creates a fresh root at version 0.
func NewAggregateRoot[ID comparable](aggregateType string, id ID) AggregateRoot[ID] {
	return AggregateRoot[ID]{
		Entity:        NewEntity(id),
		aggregateType: aggregateType,
	}
}

// RestoreAggregateRoot rebuilds a root loaded from storage at its persisted version.
func RestoreAggregateRoot[ID comparable](aggregateType string, id ID, version int) AggregateRoot[ID] {
	return AggregateRoot[ID]{
		Entity:        NewEntity(id),
		aggregateType: aggregateType,
		version:       version,
	}
}

func (a *AggregateRoot[ID]) AggregateType() string {
	return a.aggregateType
}

// Version 返回当前版本号（包含尚未持久化的事件）
func (a *AggregateRoot[ID]) Version() int {
	return a.version
}

// PersistedVersion is the version the aggregate had when it was loaded, used as the
// optimistic concurrency token. Zero means the aggregate has never been stored.
func (a *AggregateRoot[ID]) PersistedVersion() int {
	return a.version - len(a.events)
}

// DomainEvents returns the pending events in the order they were raised.
func (a *AggregateRoot[ID]) DomainEvents() []DomainEvent {
	out := make([]DomainEvent, len(a.events))
	copy(out, a.events)
	return out
}

// ClearDomainEvents drops pending events. Only the unit of work calls it, after commit.
func (a *AggregateRoot[ID]) ClearDomainEvents() {
	a.events = nil
}

func (a *AggregateRoot[ID]) aggregateID() string {
	return fmt.Sprint(a.ID())
}

// NextEventMeta returns the metadata the next raised event must carry.
func (a *AggregateRoot[ID]) NextEventMeta() (EventMeta, error) {
	return NewEventMeta(a.aggregateType, a.aggregateID(), a.version+1)
}

// RaiseDomainEvent appends event and increments the version. The event must have been
// stamped for this aggregate at the next version.
func (a *AggregateRoot[ID]) RaiseDomainEvent(event DomainEvent) error {
	if event == nil {
		return NewValidationError(a.aggregateType, "event", "event cannot be nil")
	}
	if event.AggregateType() != a.aggregateType {
		return NewAggregateMismatchError(a.aggregateType, a.aggregateType, event.AggregateType(), "event aggregate type")
	}
	if id := a.aggregateID(); event.AggregateID() != id {
		return NewAggregateMismatchError(a.aggregateType, id, event.AggregateID(), "event aggregate id")
	}
	if next := a.version + 1; event.AggregateVersion() != next {
		return NewAggregateMismatchError(a.aggregateType,
			fmt.Sprint(next), fmt.Sprint(event.AggregateVersion()), "event aggregate version")
	}

	a.events = append(a.events, event)
	a.version++
	return nil
}

// Raise stamps the metadata for the next event, builds it and raises it.
func (a *AggregateRoot[ID]) Raise(build func(EventMeta) DomainEvent) error {
	meta, err := a.NextEventMeta()
	if err != nil {
		return err
	}
	return a.RaiseDomainEvent(build(meta))
}

// EventRaiser is the part of an aggregate root that child entities raise events through.
type EventRaiser interface {
	Identifiable
	AggregateType() string
	NextEventMeta() (EventMeta, error)
	RaiseDomainEvent(event DomainEvent) error
}

var _ EventRaiser = (*AggregateRoot[string])(nil)
