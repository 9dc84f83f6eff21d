package po

import (
	"time"

	"tasktrack/domain/project"
)

type ProjectPO struct {
	ID        string    `gorm:"primaryKey;size:64"`
	TenantID  string    `gorm:"size:64;not null;index:idx_projects_tenant_created,priority:1"`
	Name      string    `gorm:"size:120;not null"`
	OpenTasks int       `gorm:"not null;default:0"`
	Archived  bool      `gorm:"not null;default:false"`
	Version   int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null;index:idx_projects_tenant_created,priority:2"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ProjectPO) TableName() string {
	return "projects"
}

func FromProjectDomain(p *project.Project) *ProjectPO {
	dto := p.ToDTO()
	return &ProjectPO{
		ID:        dto.ID,
		TenantID:  dto.TenantID,
		Name:      dto.Name,
		OpenTasks: dto.OpenTasks,
		Archived:  dto.Archived,
		Version:   dto.Version,
		CreatedAt: dto.CreatedAt,
		UpdatedAt: dto.UpdatedAt,
	}
}

func (po *ProjectPO) ToDomain() *project.Project {
	return project.RebuildFromDTO(project.ReconstructionDTO{
		ID:        po.ID,
		TenantID:  po.TenantID,
		Name:      po.Name,
		OpenTasks: po.OpenTasks,
		Archived:  po.Archived,
		Version:   po.Version,
		CreatedAt: po.CreatedAt.UTC(),
		UpdatedAt: po.UpdatedAt.UTC(),
	})
}
