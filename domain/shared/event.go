package shared

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable record of something that happened to an aggregate.
type DomainEvent interface {
	EventID() string
	EventName() string
	OccurredOn() time.Time
	AggregateID() string
	AggregateType() string
	AggregateVersion() int
}

// PayloadProvider is implemented by events that expose their data for serialization.
type PayloadProvider interface {
	Payload() map[string]any
}

// EventMeta carries the identity and aggregate correlation of an event. Concrete
// events embed it; it is only created through NewEventMeta so the fields are
// fixed once the event exists.
type EventMeta struct {
	eventID          string
	occurredOn       time.Time
	aggregateID      string
	aggregateType    string
	aggregateVersion int
}

// NewEventMeta stamps a fresh event id and the current UTC time.
func NewEventMeta(aggregateType, aggregateID string, version int) (EventMeta, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return EventMeta{}, fmt.Errorf("failed to generate event ID: %w", err)
	}
	return EventMeta{
		eventID:          id.String(),
		occurredOn:       time.Now().UTC(),
		aggregateID:      aggregateID,
		aggregateType:    aggregateType,
		aggregateVersion: version,
	}, nil
}

func (m EventMeta) EventID() string       { return m.eventID }
func (m EventMeta) OccurredOn() time.Time { return m.occurredOn }
func (m EventMeta) AggregateID() string   { return m.aggregateID }
func (m EventMeta) AggregateType() string { return m.aggregateType }
func (m EventMeta) AggregateVersion() int { return m.aggregateVersion }

func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	if event.EventID() == "" {
		return fmt.Errorf("event ID cannot be empty")
	}

	if event.EventName() == "" {
		return fmt.Errorf("event name cannot be empty")
	}

	if event.AggregateID() == "" {
		return fmt.Errorf("aggregate ID cannot be empty")
	}

	if event.OccurredOn().IsZero() {
		return fmt.Errorf("occurred on time cannot be zero")
	}

	if event.AggregateVersion() <= 0 {
		return fmt.Errorf("aggregate version must be positive")
	}

	return nil
}
