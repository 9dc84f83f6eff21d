package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasktrack/domain/shared"
	"tasktrack/infrastructure/outbox"
	"tasktrack/infrastructure/persistence/gormstore/po"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxRepository GORM implementation of outbox repository
// Implements transactional outbox pattern for reliable domain event publishing
type OutboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository Create outbox repository
func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// SaveEvent Save domain event to outbox table
// Within a unit of work the message is inserted by the session's next SaveChanges,
// standalone it is inserted immediately
func (r *OutboxRepository) SaveEvent(ctx context.Context, event shared.DomainEvent) error {
	msg, err := outbox.FromDomainEvent(event)
	if err != nil {
		return fmt.Errorf("invalid domain event: %w", err)
	}
	if sess, err := sessionFor(ctx); err == nil {
		sess.record(msg)
		return nil
	}
	// Redelivered events keep their id; the first insert wins.
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(po.FromOutboxMessage(msg)).Error; err != nil {
		return fmt.Errorf("failed to save event to outbox: %w", err)
	}
	return nil
}

// PendingMessages Get pending messages for processing, oldest first
func (r *OutboxRepository) PendingMessages(ctx context.Context, limit int) ([]outbox.Message, error) {
	var rows []po.OutboxMessagePO
	err := getDB(ctx, r.db).
		Where("status = ?", string(outbox.StatusPending)).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}

	messages := make([]outbox.Message, len(rows))
	for i := range rows {
		messages[i] = rows[i].ToMessage()
	}
	return messages, nil
}

// MarkProcessing claims a pending message. Only one worker wins the update.
func (r *OutboxRepository) MarkProcessing(ctx context.Context, id string) error {
	result := getDB(ctx, r.db).Model(&po.OutboxMessagePO{}).
		Where("id = ? AND status = ?", id, string(outbox.StatusPending)).
		Updates(map[string]interface{}{
			"status":     string(outbox.StatusProcessing),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", outbox.ErrNotClaimable, id)
	}
	return nil
}

// MarkPublished Mark message as successfully published
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string) error {
	result := getDB(ctx, r.db).Model(&po.OutboxMessagePO{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(outbox.StatusPublished),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found: %s", id)
	}
	return nil
}

func (r *OutboxRepository) ReleaseProcessing(ctx context.Context, id string) error {
	return getDB(ctx, r.db).Model(&po.OutboxMessagePO{}).
		Where("id = ? AND status = ?", id, string(outbox.StatusProcessing)).
		Updates(map[string]interface{}{
			"status":     string(outbox.StatusPending),
			"updated_at": time.Now().UTC(),
		}).Error
}

// ReclaimStale puts messages left in processing since before cutoff back to pending.
func (r *OutboxRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int, error) {
	result := getDB(ctx, r.db).Model(&po.OutboxMessagePO{}).
		Where("status = ? AND updated_at < ?", string(outbox.StatusProcessing), cutoff.UTC()).
		Updates(map[string]interface{}{
			"status":     string(outbox.StatusPending),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reclaim stale events: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// MarkFailed Mark message as failed to publish
// Increments retry count; the message stays pending until retries run out
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, maxRetries int) error {
	db := getDB(ctx, r.db)

	var row po.OutboxMessagePO
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("event not found: %s", id)
		}
		return fmt.Errorf("failed to find event: %w", err)
	}

	status, retries := outbox.NextFailureStatus(row.RetryCount, maxRetries)
	return db.Model(&po.OutboxMessagePO{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      string(status),
			"retry_count": retries,
			"updated_at":  time.Now().UTC(),
		}).Error
}

// Compile-time interface implementation check
var (
	_ shared.OutboxRepository = (*OutboxRepository)(nil)
	_ outbox.Store            = (*OutboxRepository)(nil)
)
