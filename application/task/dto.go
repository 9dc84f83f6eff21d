package task

import (
	"time"

	"tasktrack/domain/shared"
	"tasktrack/domain/task"
)

// CreateTaskRequest 表示创建任务的入参。
type CreateTaskRequest struct {
	TenantID    string `json:"tenant_id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ListTasksRequest 表示分页查询任务的入参。
// 过滤条件为空时不生效；Assignee 过滤精确匹配。
type ListTasksRequest struct {
	TenantID  string `json:"tenant_id"`
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	Assignee  string `json:"assignee"`
	Limit     int    `json:"limit"`
	Cursor    string `json:"cursor"`
}

// TaskResponse 表示任务返回模型。
type TaskResponse struct {
	ID          string                  `json:"id"`
	TenantID    string                  `json:"tenant_id"`
	ProjectID   string                  `json:"project_id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Status      string                  `json:"status"`
	Assignee    string                  `json:"assignee,omitempty"`
	Checklist   []ChecklistItemResponse `json:"checklist"`
	Version     int                     `json:"version"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// ChecklistItemResponse 表示检查项返回模型。
type ChecklistItemResponse struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// TaskPage 表示一页任务，NextCursor 为空表示最后一页。
type TaskPage struct {
	Items      []*TaskResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func toTaskResponse(t *task.Task) *TaskResponse {
	items := make([]ChecklistItemResponse, 0, len(t.Checklist()))
	for _, item := range t.Checklist() {
		items = append(items, ChecklistItemResponse{
			ID:      item.ID(),
			Text:    item.Text(),
			Checked: item.Checked(),
		})
	}
	return &TaskResponse{
		ID:          t.ID(),
		TenantID:    t.TenantID(),
		ProjectID:   t.ProjectID(),
		Title:       t.Title(),
		Description: t.Description(),
		Status:      string(t.Status()),
		Assignee:    t.Assignee(),
		Checklist:   items,
		Version:     t.Version(),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

func toTaskPage(page shared.Page[*task.Task]) *TaskPage {
	out := shared.MapPage(page, toTaskResponse)
	return &TaskPage{Items: out.Items, NextCursor: out.NextCursor}
}

// filterSpec combines the request filters; nil when there are none.
func (r ListTasksRequest) filterSpec() (shared.Specification, error) {
	var specs []shared.Specification
	if r.ProjectID != "" {
		specs = append(specs, task.NewByProjectSpecification(r.ProjectID))
	}
	if r.Status != "" {
		status := task.Status(r.Status)
		if !status.Valid() {
			return nil, shared.NewValidationError(task.AggregateType, "status", "unknown status "+r.Status)
		}
		specs = append(specs, task.NewByStatusSpecification(status))
	}
	if r.Assignee != "" {
		specs = append(specs, task.NewByAssigneeSpecification(r.Assignee))
	}

	return shared.AllOf(specs...), nil
}
