package outbox

import (
	"context"
	"errors"
	"time"
)

// ErrNotClaimable is returned by MarkProcessing when another worker claimed the
// message first or it is no longer pending.
var ErrNotClaimable = errors.New("outbox message not found or already being processed")

// Store is the relay side of the outbox. The recording side is
// shared.OutboxRepository, implemented by the same stores.
type Store interface {
	// PendingMessages returns up to limit pending messages, oldest first.
	PendingMessages(ctx context.Context, limit int) ([]Message, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkPublished(ctx context.Context, id string) error
	// ReleaseProcessing returns a claimed message to pending without counting an attempt.
	ReleaseProcessing(ctx context.Context, id string) error
	// MarkFailed counts a failed attempt; the message goes back to pending until it
	// has failed maxRetries times.
	MarkFailed(ctx context.Context, id string, maxRetries int) error
	// ReclaimStale returns messages claimed before cutoff to pending. Their worker
	// died between claiming and marking them.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int, error)
}
