package project

import "tasktrack/domain/shared"

type ProjectCreatedEvent struct {
	shared.EventMeta
	tenantID string
	name     string
}

func (e *ProjectCreatedEvent) EventName() string { return "project.created" }
func (e *ProjectCreatedEvent) TenantID() string  { return e.tenantID }
func (e *ProjectCreatedEvent) Name() string      { return e.name }
func (e *ProjectCreatedEvent) Payload() map[string]any {
	return map[string]any{"tenant_id": e.tenantID, "name": e.name}
}

type ProjectRenamedEvent struct {
	shared.EventMeta
	name     string
	previous string
}

func (e *ProjectRenamedEvent) EventName() string { return "project.renamed" }
func (e *ProjectRenamedEvent) Name() string      { return e.name }
func (e *ProjectRenamedEvent) Previous() string  { return e.previous }
func (e *ProjectRenamedEvent) Payload() map[string]any {
	return map[string]any{"name": e.name, "previous": e.previous}
}

type ProjectArchivedEvent struct {
	shared.EventMeta
}

func (e *ProjectArchivedEvent) EventName() string { return "project.archived" }

type OpenTasksChangedEvent struct {
	shared.EventMeta
	openTasks int
	delta     int
}

func (e *OpenTasksChangedEvent) EventName() string { return "project.open_tasks_changed" }
func (e *OpenTasksChangedEvent) OpenTasks() int    { return e.openTasks }
func (e *OpenTasksChangedEvent) Delta() int        { return e.delta }
func (e *OpenTasksChangedEvent) Payload() map[string]any {
	return map[string]any{"open_tasks": e.openTasks, "delta": e.delta}
}
