package gormstore

import (
	"context"
	"errors"
	"fmt"

	"tasktrack/domain/project"
	"tasktrack/domain/shared"
	"tasktrack/infrastructure/persistence"
	"tasktrack/infrastructure/persistence/gormstore/po"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectRepository GORM implementation of project repository
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
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
	sess, err := sessionFor(ctx)
	if err != nil {
		return err
	}
	sess.stage(p, func(tx *gorm.DB, expected int) error {
		projectPO := po.FromProjectDomain(p)
		if expected == 0 {
			if err := tx.Create(projectPO).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return project.NewConcurrentModificationError(p.ID())
				}
				return err
			}
			return nil
		}
		result := tx.Model(&po.ProjectPO{}).
			Where("id = ? AND tenant_id = ? AND version = ?", p.ID(), p.TenantID(), expected).
			Updates(map[string]interface{}{
				"name":       projectPO.Name,
				"open_tasks": projectPO.OpenTasks,
				"archived":   projectPO.Archived,
				"version":    projectPO.Version,
				"updated_at": projectPO.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return project.NewConcurrentModificationError(p.ID())
		}
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

	var projectPO po.ProjectPO
	err := getDB(ctx, r.db).First(&projectPO, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.NewProjectNotFoundError(id)
		}
		return nil, err
	}
	return projectPO.ToDomain(), nil
}

func (r *ProjectRepository) List(ctx context.Context, tenantID string, page shared.PageRequest) (shared.Page[*project.Project], error) {
	page, err := page.Normalize()
	if err != nil {
		return shared.Page[*project.Project]{}, err
	}

	query := getDB(ctx, r.db).Model(&po.ProjectPO{}).Where("tenant_id = ?", tenantID)
	query, err = applyTimeIDCursor(query, page)
	if err != nil {
		return shared.Page[*project.Project]{}, err
	}

	var projectPOs []po.ProjectPO
	if err := query.Find(&projectPOs).Error; err != nil {
		return shared.Page[*project.Project]{}, err
	}
	projects := make([]*project.Project, len(projectPOs))
	for i := range projectPOs {
		projects[i] = projectPOs[i].ToDomain()
	}
	return shared.BuildPage(projects, page.Limit, (*project.Project).OrderKey, shared.TimeIDCursor), nil
}

var _ project.Repository = (*ProjectRepository)(nil)
