package memory

import (
	"context"
	"fmt"

	"tasktrack/domain/shared"
	"tasktrack/domain/task"
	"tasktrack/infrastructure/persistence"

	"github.com/google/uuid"
)

// TaskRepository Memory implementation of task repository
type TaskRepository struct {
	store *Store
}

func NewTaskRepository(store *Store) *TaskRepository {
	return &TaskRepository{store: store}
}

// NextIdentity Generate new task ID
func (r *TaskRepository) NextIdentity() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate task ID: %w", err)
	}
	return id.String(), nil
}

// Save stages t in the session bound to ctx. The write happens when the unit of
// work saves changes.
func (r *TaskRepository) Save(ctx context.Context, t *task.Task) error {
	if t == nil {
		return shared.NewValidationError(task.AggregateType, "task", "task cannot be nil")
	}
	sess, err := r.store.sessionFor(ctx)
	if err != nil {
		return err
	}
	sess.stage(t, func(d *dataset, expected int) error {
		return writeTask(d, t, expected)
	})
	return nil
}

func writeTask(d *dataset, t *task.Task, expected int) error {
	cur, exists := d.tasks[t.ID()]
	switch {
	case expected == 0 && exists:
		return task.NewConcurrentModificationError(t.ID())
	case expected > 0 && (!exists || cur.Version != expected):
		return task.NewConcurrentModificationError(t.ID())
	case exists && cur.TenantID != t.TenantID():
		return shared.NewForbiddenError(task.AggregateType, "task belongs to another tenant")
	}
	d.tasks[t.ID()] = t.ToDTO()
	return nil
}

// FindByID returns the instance already tracked by the running unit of work, if any.
func (r *TaskRepository) FindByID(ctx context.Context, tenantID, id string) (*task.Task, error) {
	if t, ok := persistence.Tracked[*task.Task](ctx, id); ok {
		if t.TenantID() != tenantID || t.IsRemoved() {
			return nil, task.NewTaskNotFoundError(id)
		}
		return t, nil
	}

	var (
		dto   task.ReconstructionDTO
		found bool
	)
	r.store.view(ctx, func(d *dataset) {
		dto, found = d.tasks[id]
	})
	if !found || dto.TenantID != tenantID || dto.Removed {
		return nil, task.NewTaskNotFoundError(id)
	}
	return task.RebuildFromDTO(dto)
}

func (r *TaskRepository) List(ctx context.Context, tenantID string, spec shared.Specification, page shared.PageRequest) (shared.Page[*task.Task], error) {
	var dtos []task.ReconstructionDTO
	r.store.view(ctx, func(d *dataset) {
		for _, dto := range d.tasks {
			if dto.TenantID == tenantID && !dto.Removed {
				dtos = append(dtos, dto)
			}
		}
	})

	tasks := make([]*task.Task, 0, len(dtos))
	for _, dto := range dtos {
		t, err := task.RebuildFromDTO(dto)
		if err != nil {
			return shared.Page[*task.Task]{}, err
		}
		if spec != nil && !spec.IsSatisfiedBy(ctx, t) {
			continue
		}
		tasks = append(tasks, t)
	}

	return shared.PaginateSlice(tasks, page, (*task.Task).OrderKey, shared.TimeIDKey.Compare, shared.TimeIDCursor)
}

var _ task.Repository = (*TaskRepository)(nil)
