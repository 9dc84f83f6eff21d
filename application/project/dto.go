package project

import (
	"time"

	"tasktrack/domain/project"
	"tasktrack/domain/shared"
)

// CreateProjectRequest 表示创建项目的入参。
type CreateProjectRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

// RenameProjectRequest 表示项目重命名入参。
type RenameProjectRequest struct {
	TenantID  string `json:"tenant_id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// ListProjectsRequest 表示分页查询项目的入参，Limit 为 0 时使用默认分页大小。
type ListProjectsRequest struct {
	TenantID string `json:"tenant_id"`
	Limit    int    `json:"limit"`
	Cursor   string `json:"cursor"`
}

// ProjectResponse 表示项目返回模型。
type ProjectResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	OpenTasks int       `json:"open_tasks"`
	Archived  bool      `json:"archived"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectPage 表示一页项目，NextCursor 为空表示最后一页。
type ProjectPage struct {
	Items      []*ProjectResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func toProjectResponse(p *project.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:        p.ID(),
		TenantID:  p.TenantID(),
		Name:      p.Name(),
		OpenTasks: p.OpenTasks(),
		Archived:  p.IsArchived(),
		Version:   p.Version(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}

func toProjectPage(page shared.Page[*project.Project]) *ProjectPage {
	out := shared.MapPage(page, toProjectResponse)
	return &ProjectPage{Items: out.Items, NextCursor: out.NextCursor}
}
