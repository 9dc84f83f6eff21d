package gormstore

import (
	"context"
	"errors"
	"fmt"

	"tasktrack/domain/shared"
	"tasktrack/domain/task"
	"tasktrack/infrastructure/persistence"
	"tasktrack/infrastructure/persistence/gormstore/po"
	"tasktrack/infrastructure/persistence/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskRepository GORM implementation of task repository
// DDD principle: Repository is only responsible for persistence of aggregate roots, not event publishing
type TaskRepository struct {
	db         *gorm.DB
	translator specification.Translator
}

// NewTaskRepository Create task repository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db, translator: specification.NewGormTranslator()}
}

// NextIdentity Generate new task ID
func (r *TaskRepository) NextIdentity() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate task ID: %w", err)
	}
	return id.String(), nil
}

// Save stages the task in the session bound to ctx; the unit of work writes it.
func (r *TaskRepository) Save(ctx context.Context, t *task.Task) error {
	if t == nil {
		return shared.NewValidationError(task.AggregateType, "task", "task cannot be nil")
	}
	sess, err := sessionFor(ctx)
	if err != nil {
		return err
	}
	sess.stage(t, func(tx *gorm.DB, expected int) error {
		return r.saveWithTx(tx, t, expected)
	})
	return nil
}

// saveWithTx performs the actual save operations within a transaction
// Note: Manually manage saving of tasks and checklist items, do not use GORM associations
func (r *TaskRepository) saveWithTx(tx *gorm.DB, t *task.Task, expected int) error {
	taskPO, itemPOs := po.FromTaskDomain(t)

	if expected == 0 {
		if err := tx.Create(taskPO).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return task.NewConcurrentModificationError(t.ID())
			}
			return err
		}
	} else {
		// 严格乐观锁：以加载时的版本作为更新条件，避免静默覆盖并发写入。
		result := tx.Model(&po.TaskPO{}).
			Where("id = ? AND tenant_id = ? AND version = ?", t.ID(), t.TenantID(), expected).
			Updates(map[string]interface{}{
				"title":       taskPO.Title,
				"description": taskPO.Description,
				"status":      taskPO.Status,
				"assignee":    taskPO.Assignee,
				"removed":     taskPO.Removed,
				"version":     taskPO.Version,
				"updated_at":  taskPO.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return task.NewConcurrentModificationError(t.ID())
		}
	}

	// Replace checklist items (simple strategy: delete then insert)
	if err := tx.Where("task_id = ?", t.ID()).Delete(&po.ChecklistItemPO{}).Error; err != nil {
		return err
	}
	if len(itemPOs) > 0 {
		if err := tx.Create(&itemPOs).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindByID Find task by ID. The instance tracked by the running unit of work wins.
func (r *TaskRepository) FindByID(ctx context.Context, tenantID, id string) (*task.Task, error) {
	if t, ok := persistence.Tracked[*task.Task](ctx, id); ok {
		if t.TenantID() != tenantID || t.IsRemoved() {
			return nil, task.NewTaskNotFoundError(id)
		}
		return t, nil
	}

	db := getDB(ctx, r.db)
	var taskPO po.TaskPO
	result := db.First(&taskPO, "id = ? AND tenant_id = ? AND removed = ?", id, tenantID, false)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, task.NewTaskNotFoundError(id)
		}
		return nil, result.Error
	}

	// Manually query checklist items (do not use GORM's Preload to keep aggregate boundaries clear)
	var itemPOs []po.ChecklistItemPO
	if err := db.Where("task_id = ?", id).Order("position ASC").Find(&itemPOs).Error; err != nil {
		return nil, err
	}
	return taskPO.ToDomain(itemPOs)
}

// List pages through live tasks ordered by (created_at, id).
func (r *TaskRepository) List(ctx context.Context, tenantID string, spec shared.Specification, page shared.PageRequest) (shared.Page[*task.Task], error) {
	page, err := page.Normalize()
	if err != nil {
		return shared.Page[*task.Task]{}, err
	}

	db := getDB(ctx, r.db)
	query := db.Model(&po.TaskPO{}).Where("tenant_id = ? AND removed = ?", tenantID, false)
	if spec != nil {
		scope := r.translator.Translate(spec)
		if scope == nil {
			return shared.Page[*task.Task]{}, fmt.Errorf("unsupported task specification %T", spec)
		}
		query = scope(query)
	}
	query, err = applyTimeIDCursor(query, page)
	if err != nil {
		return shared.Page[*task.Task]{}, err
	}

	var taskPOs []po.TaskPO
	if err := query.Find(&taskPOs).Error; err != nil {
		return shared.Page[*task.Task]{}, err
	}
	if len(taskPOs) == 0 {
		return shared.Page[*task.Task]{}, nil
	}

	// Batch query checklist items
	ids := make([]string, len(taskPOs))
	for i := range taskPOs {
		ids[i] = taskPOs[i].ID
	}
	var itemPOs []po.ChecklistItemPO
	if err := db.Where("task_id IN ?", ids).Order("task_id ASC, position ASC").Find(&itemPOs).Error; err != nil {
		return shared.Page[*task.Task]{}, err
	}
	itemsByTask := make(map[string][]po.ChecklistItemPO, len(taskPOs))
	for _, item := range itemPOs {
		itemsByTask[item.TaskID] = append(itemsByTask[item.TaskID], item)
	}

	tasks := make([]*task.Task, len(taskPOs))
	for i := range taskPOs {
		t, err := taskPOs[i].ToDomain(itemsByTask[taskPOs[i].ID])
		if err != nil {
			return shared.Page[*task.Task]{}, err
		}
		tasks[i] = t
	}
	return shared.BuildPage(tasks, page.Limit, (*task.Task).OrderKey, shared.TimeIDCursor), nil
}

// Compile-time interface implementation check
var _ task.Repository = (*TaskRepository)(nil)
