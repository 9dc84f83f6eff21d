package task

import "tasktrack/domain/shared"

// TaskCreatedEvent Task created event
type TaskCreatedEvent struct {
	shared.EventMeta
	tenantID  string
	projectID string
	title     string
}

func (e *TaskCreatedEvent) EventName() string { return "task.created" }
func (e *TaskCreatedEvent) TenantID() string  { return e.tenantID }
func (e *TaskCreatedEvent) ProjectID() string { return e.projectID }
func (e *TaskCreatedEvent) Title() string     { return e.title }
func (e *TaskCreatedEvent) Payload() map[string]any {
	return map[string]any{"tenant_id": e.tenantID, "project_id": e.projectID, "title": e.title}
}

type TaskRenamedEvent struct {
	shared.EventMeta
	title    string
	previous string
}

func (e *TaskRenamedEvent) EventName() string { return "task.renamed" }
func (e *TaskRenamedEvent) Title() string     { return e.title }
func (e *TaskRenamedEvent) Payload() map[string]any {
	return map[string]any{"title": e.title, "previous": e.previous}
}

type TaskAssignedEvent struct {
	shared.EventMeta
	assignee string
	previous string
}

func (e *TaskAssignedEvent) EventName() string { return "task.assigned" }
func (e *TaskAssignedEvent) Assignee() string  { return e.assignee }
func (e *TaskAssignedEvent) Previous() string  { return e.previous }
func (e *TaskAssignedEvent) Payload() map[string]any {
	return map[string]any{"assignee": e.assignee, "previous": e.previous}
}

type TaskStartedEvent struct {
	shared.EventMeta
}

func (e *TaskStartedEvent) EventName() string { return "task.started" }

// TaskCompletedEvent carries the project so project-side handlers need not load the task.
type TaskCompletedEvent struct {
	shared.EventMeta
	tenantID  string
	projectID string
}

func (e *TaskCompletedEvent) EventName() string { return "task.completed" }
func (e *TaskCompletedEvent) TenantID() string  { return e.tenantID }
func (e *TaskCompletedEvent) ProjectID() string { return e.projectID }
func (e *TaskCompletedEvent) Payload() map[string]any {
	return map[string]any{"tenant_id": e.tenantID, "project_id": e.projectID}
}

type TaskReopenedEvent struct {
	shared.EventMeta
	tenantID  string
	projectID string
}

func (e *TaskReopenedEvent) EventName() string { return "task.reopened" }
func (e *TaskReopenedEvent) TenantID() string  { return e.tenantID }
func (e *TaskReopenedEvent) ProjectID() string { return e.projectID }
func (e *TaskReopenedEvent) Payload() map[string]any {
	return map[string]any{"tenant_id": e.tenantID, "project_id": e.projectID}
}

// TaskRemovedEvent WasOpen reports whether the task still counted as open work.
type TaskRemovedEvent struct {
	shared.EventMeta
	tenantID  string
	projectID string
	wasOpen   bool
}

func (e *TaskRemovedEvent) EventName() string { return "task.removed" }
func (e *TaskRemovedEvent) TenantID() string  { return e.tenantID }
func (e *TaskRemovedEvent) ProjectID() string { return e.projectID }
func (e *TaskRemovedEvent) WasOpen() bool     { return e.wasOpen }
func (e *TaskRemovedEvent) Payload() map[string]any {
	return map[string]any{"tenant_id": e.tenantID, "project_id": e.projectID, "was_open": e.wasOpen}
}

// ChecklistItemAddedEvent is raised by the item through its task.
type ChecklistItemAddedEvent struct {
	shared.EventMeta
	itemID string
	text   string
}

func (e *ChecklistItemAddedEvent) EventName() string { return "task.checklist_item_added" }
func (e *ChecklistItemAddedEvent) ItemID() string    { return e.itemID }
func (e *ChecklistItemAddedEvent) Text() string      { return e.text }
func (e *ChecklistItemAddedEvent) Payload() map[string]any {
	return map[string]any{"item_id": e.itemID, "text": e.text}
}

type ChecklistItemCheckedEvent struct {
	shared.EventMeta
	itemID string
}

func (e *ChecklistItemCheckedEvent) EventName() string { return "task.checklist_item_checked" }
func (e *ChecklistItemCheckedEvent) ItemID() string    { return e.itemID }
func (e *ChecklistItemCheckedEvent) Payload() map[string]any {
	return map[string]any{"item_id": e.itemID}
}
