// Package project Application Layer - Project Business Process Orchestration
package project

import (
	"context"

	"tasktrack/application"
	"tasktrack/domain/project"
	"tasktrack/domain/shared"
)

// ApplicationService Project application service - coordinates project-related business processes
type ApplicationService struct {
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

// NewApplicationService Create project application service
func NewApplicationService(projects project.Repository, uows shared.UnitOfWorkFactory, opts ...Option) *ApplicationService {
	s := &ApplicationService{
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

// CreateProject Create project
func (s *ApplicationService) CreateProject(ctx context.Context, req CreateProjectRequest) (*ProjectResponse, error) {
	var p *project.Project
	err := application.InUnitOfWork(ctx, s.uows, s.retry, func(ctx context.Context, uow shared.UnitOfWork) error {
		id, err := s.projects.NextIdentity()
		if err != nil {
			return err
		}
		p, err = project.NewProject(id, req.TenantID, req.Name)
		if err != nil {
			return err
		}
		if err := s.projects.Save(ctx, p); err != nil {
			return err
		}
		uow.RegisterNew(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toProjectResponse(p), nil
}

// RenameProject Rename project
func (s *ApplicationService) RenameProject(ctx context.Context, req RenameProjectRequest) (*ProjectResponse, error) {
	return s.mutate(ctx, req.TenantID, req.ProjectID, func(p *project.Project) error {
		return p.Rename(req.Name)
	})
}

// ArchiveProject Archive project; it must have no open tasks
func (s *ApplicationService) ArchiveProject(ctx context.Context, tenantID, projectID string) (*ProjectResponse, error) {
	return s.mutate(ctx, tenantID, projectID, (*project.Project).Archive)
}

// GetProject Get project information
func (s *ApplicationService) GetProject(ctx context.Context, tenantID, projectID string) (*ProjectResponse, error) {
	p, err := s.projects.FindByID(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	return toProjectResponse(p), nil
}

// ListProjects Page through the tenant's projects in creation order
func (s *ApplicationService) ListProjects(ctx context.Context, req ListProjectsRequest) (*ProjectPage, error) {
	page, err := s.projects.List(ctx, req.TenantID, shared.PageRequest{
		Limit:  application.PageLimit(req.Limit, s.defaultLimit),
		Cursor: req.Cursor,
	})
	if err != nil {
		return nil, err
	}
	return toProjectPage(page), nil
}

func (s *ApplicationService) mutate(ctx context.Context, tenantID, projectID string, change func(*project.Project) error) (*ProjectResponse, error) {
	var p *project.Project
	err := application.InUnitOfWork(ctx, s.uows, s.retry, func(ctx context.Context, uow shared.UnitOfWork) error {
		var err error
		p, err = s.projects.FindByID(ctx, tenantID, projectID)
		if err != nil {
			return err
		}
		if err := change(p); err != nil {
			return err
		}
		if err := s.projects.Save(ctx, p); err != nil {
			return err
		}
		uow.RegisterDirty(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toProjectResponse(p), nil
}
