package memory

import (
	"context"
	"fmt"
	"time"

	"tasktrack/domain/shared"
	"tasktrack/infrastructure/outbox"
)

// OutboxRepository records events in the session and serves the relay worker.
type OutboxRepository struct {
	store *Store
}

func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// SaveEvent records event in the running transaction. Without a session the message
// is stored immediately.
func (r *OutboxRepository) SaveEvent(ctx context.Context, event shared.DomainEvent) error {
	msg, err := outbox.FromDomainEvent(event)
	if err != nil {
		return err
	}
	if sess, err := r.store.sessionFor(ctx); err == nil {
		sess.record(msg)
		return nil
	}
	return r.store.update(func(d *dataset) error {
		d.appendMessage(msg)
		return nil
	})
}

func (r *OutboxRepository) PendingMessages(ctx context.Context, limit int) ([]outbox.Message, error) {
	var out []outbox.Message
	r.store.read(func(d *dataset) {
		for _, m := range d.outbox {
			if len(out) == limit {
				break
			}
			if m.Status == outbox.StatusPending {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (r *OutboxRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(id, func(m *outbox.Message) error {
		if m.Status != outbox.StatusPending {
			return fmt.Errorf("%w: %s", outbox.ErrNotClaimable, id)
		}
		m.Status = outbox.StatusProcessing
		return nil
	})
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string) error {
	return r.transition(id, func(m *outbox.Message) error {
		m.Status = outbox.StatusPublished
		return nil
	})
}

func (r *OutboxRepository) ReleaseProcessing(ctx context.Context, id string) error {
	return r.transition(id, func(m *outbox.Message) error {
		if m.Status == outbox.StatusProcessing {
			m.Status = outbox.StatusPending
		}
		return nil
	})
}

func (r *OutboxRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	err := r.store.update(func(d *dataset) error {
		now := time.Now().UTC()
		for i, m := range d.outbox {
			if m.Status == outbox.StatusProcessing && m.UpdatedAt.Before(cutoff) {
				m.Status = outbox.StatusPending
				m.UpdatedAt = now
				d.outbox[i] = m
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, maxRetries int) error {
	return r.transition(id, func(m *outbox.Message) error {
		m.Status, m.RetryCount = outbox.NextFailureStatus(m.RetryCount, maxRetries)
		return nil
	})
}

func (r *OutboxRepository) transition(id string, fn func(m *outbox.Message) error) error {
	return r.store.update(func(d *dataset) error {
		i, ok := d.outboxIndex[id]
		if !ok {
			return fmt.Errorf("outbox event not found: %s", id)
		}
		m := d.outbox[i]
		if err := fn(&m); err != nil {
			return err
		}
		m.UpdatedAt = time.Now().UTC()
		d.outbox[i] = m
		return nil
	})
}

// Messages returns every recorded message in insertion order.
func (r *OutboxRepository) Messages() []outbox.Message {
	var out []outbox.Message
	r.store.read(func(d *dataset) {
		out = append(out, d.outbox...)
	})
	return out
}

var (
	_ shared.OutboxRepository = (*OutboxRepository)(nil)
	_ outbox.Store            = (*OutboxRepository)(nil)
)
