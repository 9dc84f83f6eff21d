/*
Package task Task subdomain

Task is the aggregate root of this package. Checklist items live inside the task's
consistency boundary: they are created through the task, attached to it and raise
their events through it, so the task version counts every change in the aggregate.

DDD Core Principles:
1. All fields are private, behavior exposed through methods
2. Every state change records a domain event before the state is mutated
3. Persistence goes through ReconstructionDTO, never through struct literals
*/
package task

import (
	"fmt"
	"strings"
	"time"

	"tasktrack/domain/shared"

	"github.com/google/uuid"
)

const AggregateType = "task"

const (
	maxTitleLength    = 200
	maxChecklistItems = 50
)

// Status Task status enum
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task Task aggregate root
type Task struct {
	shared.AggregateRoot[string]
	tenantID    string
	projectID   string
	title       string
	description string
	status      Status
	assignee    string
	checklist   []*ChecklistItem
	removed     bool
	createdAt   time.Time
	updatedAt   time.Time
}

// ============================================================================
// Factory Methods
// ============================================================================

// NewTask creates an open task in a project and records TaskCreatedEvent.
func NewTask(id, tenantID, projectID, title, description string) (*Task, error) {
	if id == "" {
		return nil, shared.NewValidationError(AggregateType, "id", "task id is required")
	}
	if tenantID == "" {
		return nil, shared.NewValidationError(AggregateType, "tenant_id", "tenant id is required")
	}
	if projectID == "" {
		return nil, shared.NewValidationError(AggregateType, "project_id", "project id is required")
	}
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	t := &Task{
		AggregateRoot: shared.NewAggregateRoot(AggregateType, id),
		tenantID:      tenantID,
		projectID:     projectID,
		description:   strings.TrimSpace(description),
		createdAt:     now,
		updatedAt:     now,
	}
	if err := t.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &TaskCreatedEvent{EventMeta: m, tenantID: tenantID, projectID: projectID, title: title}
	}); err != nil {
		return nil, err
	}
	t.title = title
	t.status = StatusOpen
	return t, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", shared.NewValidationError(AggregateType, "title", "task title is required")
	}
	if len(title) > maxTitleLength {
		return "", shared.NewValidationError(AggregateType, "title", "task title is too long")
	}
	return title, nil
}

// ============================================================================
// ReconstructionDTO - For Repository Layer Use Only
// ============================================================================

type ReconstructionDTO struct {
	ID          string
	TenantID    string
	ProjectID   string
	Title       string
	Description string
	Status      Status
	Assignee    string
	Checklist   []ChecklistItemDTO
	Removed     bool
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RebuildFromDTO restores a task and re-attaches its checklist items. An item that
// belongs to another task is rejected.
func RebuildFromDTO(dto ReconstructionDTO) (*Task, error) {
	t := &Task{
		AggregateRoot: shared.RestoreAggregateRoot(AggregateType, dto.ID, dto.Version),
		tenantID:      dto.TenantID,
		projectID:     dto.ProjectID,
		title:         dto.Title,
		description:   dto.Description,
		status:        dto.Status,
		assignee:      dto.Assignee,
		removed:       dto.Removed,
		createdAt:     dto.CreatedAt,
		updatedAt:     dto.UpdatedAt,
	}
	t.checklist = make([]*ChecklistItem, 0, len(dto.Checklist))
	for _, it := range dto.Checklist {
		item := newChecklistItem(it.ID, it.TaskID, it.Text, it.Position)
		item.checked = it.Checked
		if err := item.AttachTo(t); err != nil {
			return nil, err
		}
		t.checklist = append(t.checklist, item)
	}
	return t, nil
}

// ToDTO snapshots the current state for persistence.
func (t *Task) ToDTO() ReconstructionDTO {
	items := make([]ChecklistItemDTO, len(t.checklist))
	for i, it := range t.checklist {
		items[i] = it.toDTO()
	}
	return ReconstructionDTO{
		ID:          t.ID(),
		TenantID:    t.tenantID,
		ProjectID:   t.projectID,
		Title:       t.title,
		Description: t.description,
		Status:      t.status,
		Assignee:    t.assignee,
		Checklist:   items,
		Removed:     t.removed,
		Version:     t.Version(),
		CreatedAt:   t.createdAt,
		UpdatedAt:   t.updatedAt,
	}
}

// ============================================================================
// Behaviour
// ============================================================================

func (t *Task) Rename(title string) error {
	if t.removed {
		return ErrTaskRemoved
	}
	title, err := validateTitle(title)
	if err != nil {
		return err
	}
	if title == t.title {
		return nil
	}
	previous := t.title
	if err := t.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &TaskRenamedEvent{EventMeta: m, title: title, previous: previous}
	}); err != nil {
		return err
	}
	t.title = title
	return nil
}

func (t *Task) Assign(assignee string) error {
	if t.removed {
		return ErrTaskRemoved
	}
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return shared.NewValidationError(AggregateType, "assignee", "assignee is required")
	}
	if assignee == t.assignee {
		return ErrAlreadyAssigned
	}
	previous := t.assignee
	if err := t.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &TaskAssignedEvent{EventMeta: m, assignee: assignee, previous: previous}
	}); err != nil {
		return err
	}
	t.assignee = assignee
	return nil
}

// Start moves an open task to IN_PROGRESS.
func (t *Task) Start() error {
	if t.removed {
		return ErrTaskRemoved
	}
	if t.status != StatusOpen {
		return NewInvalidTaskStateError(t.status, "start")
	}
	if err := t.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &TaskStartedEvent{EventMeta: m}
	}); err != nil {
		return err
	}
	t.status = StatusInProgress
	return nil
}

// Complete marks the task DONE. Every checklist item must be checked first.
func (t *Task) Complete() error {
	if t.removed {
		return ErrTaskRemoved
	}
	if t.status == StatusDone {
		return NewInvalidTaskStateError(t.status, "complete")
	}
	for _, it := range t.checklist {
		if !it.checked {
			return ErrChecklistIncomplete
		}
	}
	if err := t.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &TaskCompletedEvent{EventMeta: m, tenantID: t.tenantID, projectID: t.projectID}
	}); err != nil {
		return err
	}
	t.status = StatusDone
	return nil
}

func (t *Task) Reopen() error {
	if t.removed {
		return ErrTaskRemoved
	}
	if t.status != StatusDone {
		return NewInvalidTaskStateError(t.status, "reopen")
	}
	if err := t.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &TaskReopenedEvent{EventMeta: m, tenantID: t.tenantID, projectID: t.projectID}
	}); err != nil {
		return err
	}
	t.status = StatusOpen
	return nil
}

// Remove soft-deletes the task. Repositories stop returning it once saved.
func (t *Task) Remove() error {
	if t.removed {
		return ErrTaskRemoved
	}
	wasOpen := t.IsOpen()
	if err := t.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &TaskRemovedEvent{EventMeta: m, tenantID: t.tenantID, projectID: t.projectID, wasOpen: wasOpen}
	}); err != nil {
		return err
	}
	t.removed = true
	return nil
}

// AddChecklistItem creates a checklist item attached to this task.
func (t *Task) AddChecklistItem(text string) (*ChecklistItem, error) {
	if t.removed {
		return nil, ErrTaskRemoved
	}
	if t.status == StatusDone {
		return nil, NewInvalidTaskStateError(t.status, "add checklist items to")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, shared.NewValidationError(AggregateType, "checklist", "item text is required")
	}
	if len(t.checklist) >= maxChecklistItems {
		return nil, shared.NewValidationError(AggregateType, "checklist",
			fmt.Sprintf("a task holds at most %d checklist items", maxChecklistItems))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate checklist item ID: %w", err)
	}
	item := newChecklistItem(id.String(), t.ID(), text, len(t.checklist))
	if err := item.AttachTo(t); err != nil {
		return nil, err
	}

	var at time.Time
	if err := item.Raise(func(m shared.EventMeta) shared.DomainEvent {
		at = m.OccurredOn()
		return &ChecklistItemAddedEvent{EventMeta: m, itemID: item.ID(), text: text}
	}); err != nil {
		return nil, err
	}
	t.checklist = append(t.checklist, item)
	t.touch(at)
	return item, nil
}

// CheckItem checks a checklist item. The item raises the event through this task.
func (t *Task) CheckItem(itemID string) error {
	if t.removed {
		return ErrTaskRemoved
	}
	item := t.ChecklistItem(itemID)
	if item == nil {
		return NewChecklistItemNotFoundError(itemID)
	}
	before := t.Version()
	if err := item.check(); err != nil {
		return err
	}
	if t.Version() > before {
		t.touch(time.Now())
	}
	return nil
}

func (t *Task) raise(build func(shared.EventMeta) shared.DomainEvent) error {
	var at time.Time
	err := t.Raise(func(m shared.EventMeta) shared.DomainEvent {
		at = m.OccurredOn()
		return build(m)
	})
	if err == nil {
		t.touch(at)
	}
	return err
}

func (t *Task) touch(at time.Time) {
	t.updatedAt = at.UTC().Truncate(time.Microsecond)
}

// ============================================================================
// Getters
// ============================================================================

func (t *Task) TenantID() string     { return t.tenantID }
func (t *Task) ProjectID() string    { return t.projectID }
func (t *Task) Title() string        { return t.title }
func (t *Task) Description() string  { return t.description }
func (t *Task) Status() Status       { return t.status }
func (t *Task) Assignee() string     { return t.assignee }
func (t *Task) IsRemoved() bool      { return t.removed }
func (t *Task) CreatedAt() time.Time { return t.createdAt }
func (t *Task) UpdatedAt() time.Time { return t.updatedAt }

// IsOpen reports whether the task counts as open work for its project.
func (t *Task) IsOpen() bool {
	return !t.removed && t.status != StatusDone
}

// Checklist returns the items in the order they were added.
func (t *Task) Checklist() []*ChecklistItem {
	out := make([]*ChecklistItem, len(t.checklist))
	copy(out, t.checklist)
	return out
}

func (t *Task) ChecklistItem(itemID string) *ChecklistItem {
	for _, it := range t.checklist {
		if it.ID() == itemID {
			return it
		}
	}
	return nil
}

// OrderKey is the pagination key of a task.
func (t *Task) OrderKey() shared.TimeIDKey {
	return shared.TimeIDKey{At: t.createdAt, ID: t.ID()}
}

var _ shared.EventSource = (*Task)(nil)
