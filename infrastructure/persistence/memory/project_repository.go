package memory

import (
	"context"
	"fmt"

	"tasktrack/domain/project"
	"tasktrack/domain/shared"
	"tasktrack/infrastructure/persistence"

	"github.com/google/uuid"
)

type ProjectRepository struct {
	store *Store
}

func NewProjectRepository(store *Store) *ProjectRepository {
	return &ProjectRepository{store: store}
}

func (r *ProjectRepository) NextIdentity() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate project ID: %w", err)
	}
	return id.String(), nil
}

func (r *ProjectRepository) Save(ctx context.Context, p *project.Project) error {
	if p == nil {
		return shared.NewValidationError(project.AggregateType, "project", "project cannot be nil")
	}
	sess, err := r.store.sessionFor(ctx)
	if err != nil {
		return err
	}
	sess.stage(p, func(d *dataset, expected int) error {
		cur, exists := d.projects[p.ID()]
		switch {
		case expected == 0 && exists:
			return project.NewConcurrentModificationError(p.ID())
		case expected > 0 && (!exists || cur.Version != expected):
			return project.NewConcurrentModificationError(p.ID())
		case exists && cur.TenantID != p.TenantID():
			return shared.NewForbiddenError(project.AggregateType, "project belongs to another tenant")
		}
		d.projects[p.ID()] = p.ToDTO()
		return nil
	})
	return nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, tenantID, id string) (*project.Project, error) {
	if p, ok := persistence.Tracked[*project.Project](ctx, id); ok {
		if p.TenantID() != tenantID {
			return nil, project.NewProjectNotFoundError(id)
		}
		return p, nil
	}

	var (
		dto   project.ReconstructionDTO
		found bool
	)
	r.store.view(ctx, func(d *dataset) {
		dto, found = d.projects[id]
	})
	if !found || dto.TenantID != tenantID {
		return nil, project.NewProjectNotFoundError(id)
	}
	return project.RebuildFromDTO(dto), nil
}

func (r *ProjectRepository) List(ctx context.Context, tenantID string, page shared.PageRequest) (shared.Page[*project.Project], error) {
	var projects []*project.Project
	r.store.view(ctx, func(d *dataset) {
		for _, dto := range d.projects {
			if dto.TenantID == tenantID {
				projects = append(projects, project.RebuildFromDTO(dto))
			}
		}
	})
	return shared.PaginateSlice(projects, page, (*project.Project).OrderKey, shared.TimeIDKey.Compare, shared.TimeIDCursor)
}

var _ project.Repository = (*ProjectRepository)(nil)
