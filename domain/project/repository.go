package project

import (
	"context"

	"tasktrack/domain/shared"
)

// Repository persists projects. Save stages the change in the running unit of work;
// reads are scoped to a tenant.
type Repository interface {
	NextIdentity() (string, error)
	Save(ctx context.Context, p *Project) error
	FindByID(ctx context.Context, tenantID, id string) (*Project, error)
	List(ctx context.Context, tenantID string, page shared.PageRequest) (shared.Page[*Project], error)
}
