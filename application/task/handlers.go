package task

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"tasktrack/domain/project"
	"tasktrack/domain/shared"
	"tasktrack/domain/task"

	"go.uber.org/zap"
)

// ProjectCounter keeps the project's open task count in step with its tasks. It runs
// inside the unit of work that changed the task, so both aggregates commit together.
type ProjectCounter struct {
	projects project.Repository
}

func NewProjectCounter(projects project.Repository) *ProjectCounter {
	return &ProjectCounter{projects: projects}
}

func (c *ProjectCounter) Register(registry *shared.HandlerRegistry) error {
	return errors.Join(
		shared.Subscribe[*task.TaskCreatedEvent](registry, shared.NewHandlerFunc("project-counter",
			func(ctx context.Context, e *task.TaskCreatedEvent) error {
				return c.apply(ctx, e.TenantID(), e.ProjectID(), (*project.Project).TaskOpened)
			})),
		shared.Subscribe[*task.TaskReopenedEvent](registry, shared.NewHandlerFunc("project-counter",
			func(ctx context.Context, e *task.TaskReopenedEvent) error {
				return c.apply(ctx, e.TenantID(), e.ProjectID(), (*project.Project).TaskOpened)
			})),
		shared.Subscribe[*task.TaskCompletedEvent](registry, shared.NewHandlerFunc("project-counter",
			func(ctx context.Context, e *task.TaskCompletedEvent) error {
				return c.apply(ctx, e.TenantID(), e.ProjectID(), (*project.Project).TaskClosed)
			})),
		shared.Subscribe[*task.TaskRemovedEvent](registry, shared.NewHandlerFunc("project-counter",
			func(ctx context.Context, e *task.TaskRemovedEvent) error {
				if !e.WasOpen() {
					return nil
				}
				return c.apply(ctx, e.TenantID(), e.ProjectID(), (*project.Project).TaskClosed)
			})),
	)
}

func (c *ProjectCounter) apply(ctx context.Context, tenantID, projectID string, change func(*project.Project) error) error {
	uow, ok := shared.UnitOfWorkFromContext(ctx)
	if !ok {
		return fmt.Errorf("project counter: no unit of work in context")
	}
	p, err := c.projects.FindByID(ctx, tenantID, projectID)
	if err != nil {
		return err
	}
	if err := change(p); err != nil {
		return err
	}
	if err := c.projects.Save(ctx, p); err != nil {
		return err
	}
	uow.RegisterDirty(p)
	return nil
}

// OutboxRecorder writes every integration event to the outbox in the same transaction.
type OutboxRecorder struct {
	outbox shared.OutboxRepository
}

func NewOutboxRecorder(outbox shared.OutboxRepository) *OutboxRecorder {
	return &OutboxRecorder{outbox: outbox}
}

// IntegrationEvents lists the events published to other services.
func IntegrationEvents() []reflect.Type {
	return []reflect.Type{
		reflect.TypeFor[*task.TaskCreatedEvent](),
		reflect.TypeFor[*task.TaskRenamedEvent](),
		reflect.TypeFor[*task.TaskAssignedEvent](),
		reflect.TypeFor[*task.TaskStartedEvent](),
		reflect.TypeFor[*task.TaskCompletedEvent](),
		reflect.TypeFor[*task.TaskReopenedEvent](),
		reflect.TypeFor[*task.TaskRemovedEvent](),
		reflect.TypeFor[*task.ChecklistItemAddedEvent](),
		reflect.TypeFor[*task.ChecklistItemCheckedEvent](),
		reflect.TypeFor[*project.ProjectCreatedEvent](),
		reflect.TypeFor[*project.ProjectRenamedEvent](),
		reflect.TypeFor[*project.ProjectArchivedEvent](),
		reflect.TypeFor[*project.OpenTasksChangedEvent](),
	}
}

func (r *OutboxRecorder) Register(registry *shared.HandlerRegistry) error {
	handler := shared.NewFuncHandler("outbox-recorder", r.outbox.SaveEvent)
	var errs []error
	for _, eventType := range IntegrationEvents() {
		errs = append(errs, registry.Register(eventType, handler))
	}
	return errors.Join(errs...)
}

// AuditLogger logs task lifecycle events.
type AuditLogger struct {
	logger *zap.Logger
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (a *AuditLogger) Register(registry *shared.HandlerRegistry) error {
	handler := shared.NewFuncHandler("audit-log", a.log)
	var errs []error
	for _, eventType := range []reflect.Type{
		reflect.TypeFor[*task.TaskCreatedEvent](),
		reflect.TypeFor[*task.TaskStartedEvent](),
		reflect.TypeFor[*task.TaskCompletedEvent](),
		reflect.TypeFor[*task.TaskReopenedEvent](),
		reflect.TypeFor[*task.TaskRemovedEvent](),
	} {
		errs = append(errs, registry.Register(eventType, handler))
	}
	return errors.Join(errs...)
}

func (a *AuditLogger) log(ctx context.Context, event shared.DomainEvent) error {
	a.logger.Info("Task lifecycle event",
		zap.String("event", event.EventName()),
		zap.String("task_id", event.AggregateID()),
		zap.Int("version", event.AggregateVersion()),
		zap.Time("occurred_on", event.OccurredOn()),
	)
	return nil
}

// RegisterHandlers wires every task-related handler into registry once at startup.
func RegisterHandlers(registry *shared.HandlerRegistry, projects project.Repository, outbox shared.OutboxRepository, logger *zap.Logger) error {
	return errors.Join(
		NewProjectCounter(projects).Register(registry),
		NewOutboxRecorder(outbox).Register(registry),
		NewAuditLogger(logger).Register(registry),
	)
}
