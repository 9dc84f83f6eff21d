package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasktrack/domain/project"
	"tasktrack/domain/shared"
	"tasktrack/domain/task"
	"tasktrack/infrastructure/eventing"
	"tasktrack/infrastructure/outbox"
	"tasktrack/infrastructure/persistence"
	"tasktrack/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	tasks    *memory.TaskRepository
	projects *memory.ProjectRepository
	outbox   *memory.OutboxRepository
	registry *shared.HandlerRegistry
	factory  *persistence.UnitOfWorkFactory
}

func newFixture() *fixture {
	store := memory.NewStore()
	registry := shared.NewHandlerRegistry()
	return &fixture{
		store:    store,
		tasks:    memory.NewTaskRepository(store),
		projects: memory.NewProjectRepository(store),
		outbox:   memory.NewOutboxRepository(store),
		registry: registry,
		factory:  persistence.NewUnitOfWorkFactory(store, eventing.NewDispatcher(registry)),
	}
}

func (f *fixture) createTask(t *testing.T, id, title string) *task.Task {
	t.Helper()
	tk, err := task.NewTask(id, "tenant-a", "proj-1", title, "")
	require.NoError(t, err)
	uow := f.factory.New()
	require.NoError(t, uow.Execute(t.Context(), func(ctx context.Context) error {
		if err := f.tasks.Save(ctx, tk); err != nil {
			return err
		}
		uow.RegisterNew(tk)
		return nil
	}))
	return tk
}

func TestSaveAndFind(t *testing.T) {
	f := newFixture()
	tk := f.createTask(t, "task-1", "Write docs")

	assert.Empty(t, tk.DomainEvents())
	assert.Equal(t, 1, tk.PersistedVersion())

	loaded, err := f.tasks.FindByID(t.Context(), "tenant-a", "task-1")
	require.NoError(t, err)
	assert.Equal(t, "Write docs", loaded.Title())
	assert.Equal(t, 1, loaded.Version())

	_, err = f.tasks.FindByID(t.Context(), "tenant-b", "task-1")
	require.ErrorIs(t, err, task.ErrTaskNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSaveWithoutUnitOfWork(t *testing.T) {
	f := newFixture()
	tk, err := task.NewTask("task-1", "tenant-a", "proj-1", "x", "")
	require.NoError(t, err)

	require.ErrorIs(t, f.tasks.Save(t.Context(), tk), memory.ErrNoSession)
}

func TestHandlerFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture()
	boom := errors.New("boom")
	require.NoError(t, shared.Subscribe[*task.TaskCreatedEvent](f.registry,
		shared.NewHandlerFunc("fail", func(context.Context, *task.TaskCreatedEvent) error { return boom })))

	tk, err := task.NewTask("task-1", "tenant-a", "proj-1", "x", "")
	require.NoError(t, err)
	uow := f.factory.New()
	err = uow.Execute(t.Context(), func(ctx context.Context) error {
		if err := f.tasks.Save(ctx, tk); err != nil {
			return err
		}
		uow.RegisterNew(tk)
		return nil
	})
	require.ErrorIs(t, err, boom)

	_, err = f.tasks.FindByID(t.Context(), "tenant-a", "task-1")
	require.ErrorIs(t, err, task.ErrTaskNotFound)
	assert.Len(t, tk.DomainEvents(), 1)
}

func TestOptimisticConflict(t *testing.T) {
	f := newFixture()
	f.createTask(t, "task-1", "Write docs")

	first, err := f.tasks.FindByID(t.Context(), "tenant-a", "task-1")
	require.NoError(t, err)
	second, err := f.tasks.FindByID(t.Context(), "tenant-a", "task-1")
	require.NoError(t, err)

	update := func(tk *task.Task, title string) error {
		uow := f.factory.New()
		return uow.Execute(t.Context(), func(ctx context.Context) error {
			if err := tk.Rename(title); err != nil {
				return err
			}
			if err := f.tasks.Save(ctx, tk); err != nil {
				return err
			}
			uow.RegisterDirty(tk)
			return nil
		})
	}

	require.NoError(t, update(first, "First"))
	err = update(second, "Second")
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	require.ErrorIs(t, err, shared.ErrConflict)

	loaded, err := f.tasks.FindByID(t.Context(), "tenant-a", "task-1")
	require.NoError(t, err)
	assert.Equal(t, "First", loaded.Title())
	assert.Equal(t, 2, loaded.Version())
}

func TestUnchangedAggregateIsNotWritten(t *testing.T) {
	f := newFixture()
	f.createTask(t, "task-1", "Write docs")

	loaded, err := f.tasks.FindByID(t.Context(), "tenant-a", "task-1")
	require.NoError(t, err)

	save := func(mutate func() error) bool {
		var changed bool
		uow := f.factory.New()
		require.NoError(t, uow.Execute(t.Context(), func(ctx context.Context) error {
			if err := mutate(); err != nil {
				return err
			}
			if err := f.tasks.Save(ctx, loaded); err != nil {
				return err
			}
			uow.RegisterDirty(loaded)
			changed, err = uow.SaveChanges(ctx)
			return err
		}))
		return changed
	}

	assert.False(t, save(func() error { return nil }))
	assert.True(t, save(func() error { return loaded.Rename("Write more docs") }))
}

func TestHandlerEnlistsProjectInSameTransaction(t *testing.T) {
	f := newFixture()

	p, err := project.NewProject("proj-1", "tenant-a", "Launch")
	require.NoError(t, err)
	uow := f.factory.New()
	require.NoError(t, uow.Execute(t.Context(), func(ctx context.Context) error {
		if err := f.projects.Save(ctx, p); err != nil {
			return err
		}
		uow.RegisterNew(p)
		return nil
	}))

	require.NoError(t, shared.Subscribe[*task.TaskCreatedEvent](f.registry,
		shared.NewHandlerFunc("count", func(ctx context.Context, e *task.TaskCreatedEvent) error {
			p, err := f.projects.FindByID(ctx, e.TenantID(), e.ProjectID())
			if err != nil {
				return err
			}
			if err := p.TaskOpened(); err != nil {
				return err
			}
			if err := f.projects.Save(ctx, p); err != nil {
				return err
			}
			if uow, ok := shared.UnitOfWorkFromContext(ctx); ok {
				uow.RegisterDirty(p)
			}
			return nil
		})))
	require.NoError(t, shared.Subscribe[*project.OpenTasksChangedEvent](f.registry,
		shared.NewHandlerFunc("outbox", func(ctx context.Context, e *project.OpenTasksChangedEvent) error {
			return f.outbox.SaveEvent(ctx, e)
		})))

	f.createTask(t, "task-1", "a")
	f.createTask(t, "task-2", "b")

	loaded, err := f.projects.FindByID(t.Context(), "tenant-a", "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.OpenTasks())
	assert.Equal(t, 3, loaded.Version())

	msgs := f.outbox.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "project.open_tasks_changed", msgs[0].EventType)
	assert.Equal(t, 3, msgs[1].AggregateVersion)
}

func TestListPagesByCreationOrder(t *testing.T) {
	f := newFixture()
	for _, id := range []string{"task-1", "task-2", "task-3", "task-4", "task-5"} {
		f.createTask(t, id, id)
	}
	removed, err := f.tasks.FindByID(t.Context(), "tenant-a", "task-3")
	require.NoError(t, err)
	uow := f.factory.New()
	require.NoError(t, uow.Execute(t.Context(), func(ctx context.Context) error {
		if err := removed.Remove(); err != nil {
			return err
		}
		if err := f.tasks.Save(ctx, removed); err != nil {
			return err
		}
		uow.RegisterRemoved(removed)
		return nil
	}))

	var seen []string
	cursor := ""
	for {
		page, err := f.tasks.List(t.Context(), "tenant-a", nil, shared.PageRequest{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, tk := range page.Items {
			seen = append(seen, tk.ID())
		}
		if !page.HasMore() {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"task-1", "task-2", "task-4", "task-5"}, seen)

	page, err := f.tasks.List(t.Context(), "tenant-b", nil, shared.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = f.tasks.List(t.Context(), "tenant-a", task.NewByStatusSpecification(task.StatusDone), shared.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestOutboxTransitions(t *testing.T) {
	f := newFixture()
	tk, err := task.NewTask("task-1", "tenant-a", "proj-1", "x", "")
	require.NoError(t, err)
	event := tk.DomainEvents()[0]

	require.NoError(t, f.outbox.SaveEvent(t.Context(), event))
	require.NoError(t, f.outbox.SaveEvent(t.Context(), event))

	pending, err := f.outbox.PendingMessages(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, event.EventID(), pending[0].ID)

	require.NoError(t, f.outbox.MarkProcessing(t.Context(), event.EventID()))
	require.ErrorIs(t, f.outbox.MarkProcessing(t.Context(), event.EventID()), outbox.ErrNotClaimable)

	require.NoError(t, f.outbox.MarkFailed(t.Context(), event.EventID(), 2))
	msg := f.outbox.Messages()[0]
	assert.Equal(t, outbox.StatusPending, msg.Status)
	assert.Equal(t, 1, msg.RetryCount)

	require.NoError(t, f.outbox.MarkFailed(t.Context(), event.EventID(), 2))
	msg = f.outbox.Messages()[0]
	assert.Equal(t, outbox.StatusFailed, msg.Status)
}

func TestOutboxReclaimsStaleClaims(t *testing.T) {
	f := newFixture()
	tk, err := task.NewTask("task-1", "tenant-a", "proj-1", "x", "")
	require.NoError(t, err)
	event := tk.DomainEvents()[0]
	require.NoError(t, f.outbox.SaveEvent(t.Context(), event))
	require.NoError(t, f.outbox.MarkProcessing(t.Context(), event.EventID()))

	n, err := f.outbox.ReclaimStale(t.Context(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, outbox.StatusProcessing, f.outbox.Messages()[0].Status)

	n, err = f.outbox.ReclaimStale(t.Context(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, outbox.StatusPending, f.outbox.Messages()[0].Status)
}
