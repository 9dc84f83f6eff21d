package po

import (
	"time"

	"tasktrack/infrastructure/outbox"
)

// OutboxMessagePO Outbox message persistence object
// Implements transactional outbox pattern for reliable event publishing
type OutboxMessagePO struct {
	ID               string    `gorm:"primaryKey;size:64"` // event id
	AggregateID      string    `gorm:"size:64;index;not null"`
	AggregateType    string    `gorm:"size:50;not null"`
	AggregateVersion int       `gorm:"not null"`
	EventType        string    `gorm:"size:100;index;not null"` // e.g., "task.created", "project.archived"
	Payload          string    `gorm:"type:text;not null"`      // JSON serialized event data
	Status           string    `gorm:"size:20;default:PENDING;not null;index:idx_outbox_status_created,priority:1"`
	RetryCount       int       `gorm:"default:0;not null"`
	CreatedAt        time.Time `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName Specify table name
func (OutboxMessagePO) TableName() string {
	return "outbox_events"
}

func FromOutboxMessage(m outbox.Message) *OutboxMessagePO {
	return &OutboxMessagePO{
		ID:               m.ID,
		AggregateID:      m.AggregateID,
		AggregateType:    m.AggregateType,
		AggregateVersion: m.AggregateVersion,
		EventType:        m.EventType,
		Payload:          m.Payload,
		Status:           string(m.Status),
		RetryCount:       m.RetryCount,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func (po *OutboxMessagePO) ToMessage() outbox.Message {
	return outbox.Message{
		ID:               po.ID,
		AggregateID:      po.AggregateID,
		AggregateType:    po.AggregateType,
		AggregateVersion: po.AggregateVersion,
		EventType:        po.EventType,
		Payload:          po.Payload,
		Status:           outbox.Status(po.Status),
		RetryCount:       po.RetryCount,
		CreatedAt:        po.CreatedAt.UTC(),
		UpdatedAt:        po.UpdatedAt.UTC(),
	}
}

// All returns every persistence object, in migration order.
func All() []any {
	return []any{&ProjectPO{}, &TaskPO{}, &ChecklistItemPO{}, &OutboxMessagePO{}}
}
