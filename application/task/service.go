/*
Package task Application Layer - Task Business Process Orchestration

Responsibilities of Application Layer:
1. Receive external requests
2. Load aggregates through repositories and call aggregate root methods
3. Run every command in a unit of work (persist, dispatch, commit)
4. Return results to caller

Side effects on other aggregates (project open task counts, outbox records) are
event handlers running in the same unit of work, see handlers.go.
*/
package task

import (
	"context"

	"tasktrack/application"
	"tasktrack/domain/project"
	"tasktrack/domain/shared"
	"tasktrack/domain/task"
)

// ApplicationService Task application service - coordinates task-related business processes
type ApplicationService struct {
	tasks        task.Repository
	projects     project.Repository
	uows         shared.UnitOfWorkFactory
	retry        application.RetryFunc
	defaultLimit int
}

type Option func(*ApplicationService)

// WithRetry sets the caller-side retry around every command.
func WithRetry(retry application.RetryFunc) Option {
	return func(s *ApplicationService) { s.retry = retry }
}

func WithDefaultPageLimit(limit int) Option {
	return func(s *ApplicationService) { s.defaultLimit = limit }
}

// NewApplicationService Create task application service
func NewApplicationService(
	tasks task.Repository,
	projects project.Repository,
	uows shared.UnitOfWorkFactory,
	opts ...Option,
) *ApplicationService {
	s := &ApplicationService{
		tasks:        tasks,
		projects:     projects,
		uows:         uows,
		retry:        application.NoRetry,
		defaultLimit: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTask Create task in an existing project
func (s *ApplicationService) CreateTask(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error) {
	var t *task.Task
	err := application.InUnitOfWork(ctx, s.uows, s.retry, func(ctx context.Context, uow shared.UnitOfWork) error {
		p, err := s.projects.FindByID(ctx, req.TenantID, req.ProjectID)
		if err != nil {
			return err
		}
		if p.IsArchived() {
			return project.ErrProjectArchived
		}

		id, err := s.tasks.NextIdentity()
		if err != nil {
			return err
		}
		t, err = task.NewTask(id, req.TenantID, req.ProjectID, req.Title, req.Description)
		if err != nil {
			return err
		}
		if err := s.tasks.Save(ctx, t); err != nil {
			return err
		}
		uow.RegisterNew(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toTaskResponse(t), nil
}

func (s *ApplicationService) RenameTask(ctx context.Context, tenantID, taskID, title string) (*TaskResponse, error) {
	return s.mutate(ctx, tenantID, taskID, func(t *task.Task) error {
		return t.Rename(title)
	})
}

func (s *ApplicationService) AssignTask(ctx context.Context, tenantID, taskID, assignee string) (*TaskResponse, error) {
	return s.mutate(ctx, tenantID, taskID, func(t *task.Task) error {
		return t.Assign(assignee)
	})
}

func (s *ApplicationService) StartTask(ctx context.Context, tenantID, taskID string) (*TaskResponse, error) {
	return s.mutate(ctx, tenantID, taskID, (*task.Task).Start)
}

// CompleteTask Complete task; every checklist item must be checked
func (s *ApplicationService) CompleteTask(ctx context.Context, tenantID, taskID string) (*TaskResponse, error) {
	return s.mutate(ctx, tenantID, taskID, (*task.Task).Complete)
}

func (s *ApplicationService) ReopenTask(ctx context.Context, tenantID, taskID string) (*TaskResponse, error) {
	return s.mutate(ctx, tenantID, taskID, (*task.Task).Reopen)
}

// RemoveTask Soft-delete task
func (s *ApplicationService) RemoveTask(ctx context.Context, tenantID, taskID string) error {
	return application.InUnitOfWork(ctx, s.uows, s.retry, func(ctx context.Context, uow shared.UnitOfWork) error {
		t, err := s.tasks.FindByID(ctx, tenantID, taskID)
		if err != nil {
			return err
		}
		if err := t.Remove(); err != nil {
			return err
		}
		if err := s.tasks.Save(ctx, t); err != nil {
			return err
		}
		uow.RegisterRemoved(t)
		return nil
	})
}

func (s *ApplicationService) AddChecklistItem(ctx context.Context, tenantID, taskID, text string) (*TaskResponse, error) {
	return s.mutate(ctx, tenantID, taskID, func(t *task.Task) error {
		_, err := t.AddChecklistItem(text)
		return err
	})
}

func (s *ApplicationService) CheckChecklistItem(ctx context.Context, tenantID, taskID, itemID string) (*TaskResponse, error) {
	return s.mutate(ctx, tenantID, taskID, func(t *task.Task) error {
		return t.CheckItem(itemID)
	})
}

// GetTask Get task information
func (s *ApplicationService) GetTask(ctx context.Context, tenantID, taskID string) (*TaskResponse, error) {
	t, err := s.tasks.FindByID(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	return toTaskResponse(t), nil
}

// ListTasks Page through the tenant's live tasks in creation order
func (s *ApplicationService) ListTasks(ctx context.Context, req ListTasksRequest) (*TaskPage, error) {
	spec, err := req.filterSpec()
	if err != nil {
		return nil, err
	}
	page, err := s.tasks.List(ctx, req.TenantID, spec, shared.PageRequest{
		Limit:  application.PageLimit(req.Limit, s.defaultLimit),
		Cursor: req.Cursor,
	})
	if err != nil {
		return nil, err
	}
	return toTaskPage(page), nil
}

// mutate loads the task, applies change and saves it in one unit of work.
func (s *ApplicationService) mutate(ctx context.Context, tenantID, taskID string, change func(*task.Task) error) (*TaskResponse, error) {
	var t *task.Task
	err := application.InUnitOfWork(ctx, s.uows, s.retry, func(ctx context.Context, uow shared.UnitOfWork) error {
		var err error
		t, err = s.tasks.FindByID(ctx, tenantID, taskID)
		if err != nil {
			return err
		}
		if err := change(t); err != nil {
			return err
		}
		if err := s.tasks.Save(ctx, t); err != nil {
			return err
		}
		uow.RegisterDirty(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toTaskResponse(t), nil
}
