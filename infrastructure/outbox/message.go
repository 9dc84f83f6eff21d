/*
Package outbox implements the transactional outbox.

Event handlers record committed-to-be events as Messages in the same transaction as
the aggregates that raised them. The Worker later reads pending messages, publishes
them and records the outcome, so publishing never happens for a rolled back change.
*/
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"tasktrack/domain/shared"
)

// Status Outbox message status enum
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPublished  Status = "PUBLISHED"
	StatusFailed     Status = "FAILED"
)

// Message is one recorded event. ID is the event id, which makes recording the same
// event twice detectable.
type Message struct {
	ID               string
	AggregateID      string
	AggregateType    string
	AggregateVersion int
	EventType        string
	Payload          string
	Status           Status
	RetryCount       int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type envelope struct {
	EventID          string         `json:"event_id"`
	EventName        string         `json:"event_name"`
	AggregateID      string         `json:"aggregate_id"`
	AggregateType    string         `json:"aggregate_type"`
	AggregateVersion int            `json:"aggregate_version"`
	OccurredOn       time.Time      `json:"occurred_on"`
	Data             map[string]any `json:"data,omitempty"`
}

// FromDomainEvent converts a domain event to a pending message. Events implementing
// shared.PayloadProvider contribute their data.
func FromDomainEvent(event shared.DomainEvent) (Message, error) {
	if err := shared.ValidateEvent(event); err != nil {
		return Message{}, fmt.Errorf("invalid domain event: %w", err)
	}

	env := envelope{
		EventID:          event.EventID(),
		EventName:        event.EventName(),
		AggregateID:      event.AggregateID(),
		AggregateType:    event.AggregateType(),
		AggregateVersion: event.AggregateVersion(),
		OccurredOn:       event.OccurredOn(),
	}
	if p, ok := event.(shared.PayloadProvider); ok {
		env.Data = p.Payload()
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return Message{}, fmt.Errorf("failed to serialize event %s: %w", event.EventName(), err)
	}

	now := time.Now().UTC()
	return Message{
		ID:               event.EventID(),
		AggregateID:      event.AggregateID(),
		AggregateType:    event.AggregateType(),
		AggregateVersion: event.AggregateVersion(),
		EventType:        event.EventName(),
		Payload:          string(raw),
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Data decodes the payload envelope (for debugging/testing).
func (m Message) Data() (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(m.Payload), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// NextFailureStatus returns the status after a failed publish attempt: the message
// stays pending until it has failed maxRetries times.
func NextFailureStatus(retryCount, maxRetries int) (Status, int) {
	retryCount++
	if retryCount < maxRetries {
		return StatusPending, retryCount
	}
	return StatusFailed, retryCount
}
