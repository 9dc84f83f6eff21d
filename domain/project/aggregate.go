/*
Package project Project subdomain

A project groups the tasks of one tenant and keeps a running count of open tasks,
maintained by event handlers reacting to task lifecycle events.
*/
package project

import (
	"strings"
	"time"

	"tasktrack/domain/shared"
)

const AggregateType = "project"

const maxNameLength = 120

// Project aggregate root
type Project struct {
	shared.AggregateRoot[string]
	tenantID  string
	name      string
	openTasks int
	archived  bool
	createdAt time.Time
	updatedAt time.Time
}

// ============================================================================
// Factory Methods
// ============================================================================

// NewProject creates a project and records ProjectCreatedEvent.
func NewProject(id, tenantID, name string) (*Project, error) {
	if id == "" {
		return nil, shared.NewValidationError(AggregateType, "id", "project id is required")
	}
	if tenantID == "" {
		return nil, shared.NewValidationError(AggregateType, "tenant_id", "tenant id is required")
	}
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &Project{
		AggregateRoot: shared.NewAggregateRoot(AggregateType, id),
		tenantID:      tenantID,
		createdAt:     now,
		updatedAt:     now,
	}
	if err := p.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &ProjectCreatedEvent{EventMeta: m, tenantID: tenantID, name: name}
	}); err != nil {
		return nil, err
	}
	p.name = name
	return p, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", shared.NewValidationError(AggregateType, "name", "project name is required")
	}
	if len(name) > maxNameLength {
		return "", shared.NewValidationError(AggregateType, "name", "project name is too long")
	}
	return name, nil
}

// ============================================================================
// ReconstructionDTO - For Repository Layer Use Only
// ============================================================================

type ReconstructionDTO struct {
	ID        string
	TenantID  string
	Name      string
	OpenTasks int
	Archived  bool
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RebuildFromDTO restores a project without recording events.
func RebuildFromDTO(dto ReconstructionDTO) *Project {
	return &Project{
		AggregateRoot: shared.RestoreAggregateRoot(AggregateType, dto.ID, dto.Version),
		tenantID:      dto.TenantID,
		name:          dto.Name,
		openTasks:     dto.OpenTasks,
		archived:      dto.Archived,
		createdAt:     dto.CreatedAt,
		updatedAt:     dto.UpdatedAt,
	}
}

// ToDTO snapshots the current state for persistence.
func (p *Project) ToDTO() ReconstructionDTO {
	return ReconstructionDTO{
		ID:        p.ID(),
		TenantID:  p.tenantID,
		Name:      p.name,
		OpenTasks: p.openTasks,
		Archived:  p.archived,
		Version:   p.Version(),
		CreatedAt: p.createdAt,
		UpdatedAt: p.updatedAt,
	}
}

// ============================================================================
// Behaviour
// ============================================================================

func (p *Project) Rename(name string) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}
	if name == p.name {
		return nil
	}
	previous := p.name
	if err := p.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &ProjectRenamedEvent{EventMeta: m, name: name, previous: previous}
	}); err != nil {
		return err
	}
	p.name = name
	return nil
}

// Archive closes the project. Only projects without open tasks can be archived.
func (p *Project) Archive() error {
	if p.archived {
		return ErrProjectArchived
	}
	if p.openTasks > 0 {
		return ErrProjectHasOpenTasks
	}
	if err := p.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &ProjectArchivedEvent{EventMeta: m}
	}); err != nil {
		return err
	}
	p.archived = true
	return nil
}

// TaskOpened records one more open task. Archived projects reject new work.
func (p *Project) TaskOpened() error {
	if p.archived {
		return ErrProjectArchived
	}
	return p.changeOpenTasks(1)
}

// TaskClosed records one task fewer.
func (p *Project) TaskClosed() error {
	if p.openTasks == 0 {
		return ErrOpenTaskUnderflow
	}
	return p.changeOpenTasks(-1)
}

func (p *Project) changeOpenTasks(delta int) error {
	open := p.openTasks + delta
	if err := p.raise(func(m shared.EventMeta) shared.DomainEvent {
		return &OpenTasksChangedEvent{EventMeta: m, openTasks: open, delta: delta}
	}); err != nil {
		return err
	}
	p.openTasks = open
	return nil
}

func (p *Project) raise(build func(shared.EventMeta) shared.DomainEvent) error {
	var at time.Time
	err := p.Raise(func(m shared.EventMeta) shared.DomainEvent {
		at = m.OccurredOn()
		return build(m)
	})
	if err == nil {
		p.updatedAt = at.Truncate(time.Microsecond)
	}
	return err
}

// ============================================================================
// Getters
// ============================================================================

func (p *Project) TenantID() string     { return p.tenantID }
func (p *Project) Name() string         { return p.name }
func (p *Project) OpenTasks() int       { return p.openTasks }
func (p *Project) IsArchived() bool     { return p.archived }
func (p *Project) CreatedAt() time.Time { return p.createdAt }
func (p *Project) UpdatedAt() time.Time { return p.updatedAt }

// OrderKey is the pagination key of a project.
func (p *Project) OrderKey() shared.TimeIDKey {
	return shared.TimeIDKey{At: p.createdAt, ID: p.ID()}
}

var _ shared.EventSource = (*Project)(nil)
