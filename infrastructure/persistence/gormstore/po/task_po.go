package po

import (
	"time"

	"tasktrack/domain/task"
)

// TaskPO Task persistence object
// Note: Only used for database mapping, does not contain any business logic
// Defining GORM associations is prohibited here
type TaskPO struct {
	ID          string    `gorm:"primaryKey;size:64"`
	TenantID    string    `gorm:"size:64;not null;index:idx_tasks_tenant_created,priority:1"`
	ProjectID   string    `gorm:"size:64;index;not null"` // Only store ID, no association with Project
	Title       string    `gorm:"size:200;not null"`
	Description string    `gorm:"type:text"`
	Status      string    `gorm:"size:20;not null"`
	Assignee    string    `gorm:"size:64;index"`
	Removed     bool      `gorm:"not null;default:false"`
	Version     int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null;index:idx_tasks_tenant_created,priority:2"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName Specify table name
func (TaskPO) TableName() string {
	return "tasks"
}

// ChecklistItemPO Checklist item persistence object
type ChecklistItemPO struct {
	ID       string `gorm:"primaryKey;size:64"`
	TaskID   string `gorm:"size:64;index;not null"` // Only store ID, no GORM association
	Text     string `gorm:"size:500;not null"`
	Checked  bool   `gorm:"not null;default:false"`
	Position int    `gorm:"not null"`
}

// TableName Specify table name
func (ChecklistItemPO) TableName() string {
	return "task_checklist_items"
}

// FromTaskDomain Convert domain model to persistence objects
func FromTaskDomain(t *task.Task) (*TaskPO, []ChecklistItemPO) {
	dto := t.ToDTO()
	taskPO := &TaskPO{
		ID:          dto.ID,
		TenantID:    dto.TenantID,
		ProjectID:   dto.ProjectID,
		Title:       dto.Title,
		Description: dto.Description,
		Status:      string(dto.Status),
		Assignee:    dto.Assignee,
		Removed:     dto.Removed,
		Version:     dto.Version,
		CreatedAt:   dto.CreatedAt,
		UpdatedAt:   dto.UpdatedAt,
	}

	itemPOs := make([]ChecklistItemPO, len(dto.Checklist))
	for i, item := range dto.Checklist {
		itemPOs[i] = ChecklistItemPO{
			ID:       item.ID,
			TaskID:   item.TaskID,
			Text:     item.Text,
			Checked:  item.Checked,
			Position: item.Position,
		}
	}
	return taskPO, itemPOs
}

// ToDomain Convert persistence objects to domain model
func (po *TaskPO) ToDomain(itemPOs []ChecklistItemPO) (*task.Task, error) {
	items := make([]task.ChecklistItemDTO, len(itemPOs))
	for i, item := range itemPOs {
		items[i] = task.ChecklistItemDTO{
			ID:       item.ID,
			TaskID:   item.TaskID,
			Text:     item.Text,
			Checked:  item.Checked,
			Position: item.Position,
		}
	}

	return task.RebuildFromDTO(task.ReconstructionDTO{
		ID:          po.ID,
		TenantID:    po.TenantID,
		ProjectID:   po.ProjectID,
		Title:       po.Title,
		Description: po.Description,
		Status:      task.Status(po.Status),
		Assignee:    po.Assignee,
		Checklist:   items,
		Removed:     po.Removed,
		Version:     po.Version,
		CreatedAt:   po.CreatedAt.UTC(),
		UpdatedAt:   po.UpdatedAt.UTC(),
	})
}
