package task

import (
	"context"

	"tasktrack/domain/shared"
)

// Repository Task repository interface
type Repository interface {
	// NextIdentity Generate new task ID
	NextIdentity() (string, error)

	// Save stages the task in the running unit of work.
	// PersistedVersion() == 0 means insert, otherwise an optimistic update.
	// Removed tasks are kept as soft-deleted rows.
	Save(ctx context.Context, t *Task) error

	// FindByID returns a live task of the tenant. Removed tasks are not found.
	FindByID(ctx context.Context, tenantID, id string) (*Task, error)

	// List pages through the live tasks of a tenant matching spec, ordered by
	// creation time with the id as tiebreaker. A nil spec matches every task.
	List(ctx context.Context, tenantID string, spec shared.Specification, page shared.PageRequest) (shared.Page[*Task], error)
}
