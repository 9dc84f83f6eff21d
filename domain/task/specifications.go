package task

import (
	"context"

	"tasktrack/domain/shared"
)

// ByStatusSpecification filters tasks by status
type ByStatusSpecification struct {
	Status Status
}

// IsSatisfiedBy returns true if the task has the specified status
func (spec ByStatusSpecification) IsSatisfiedBy(ctx context.Context, entity any) bool {
	t, ok := entity.(*Task)
	return ok && t.Status() == spec.Status
}

// ByAssigneeSpecification filters tasks by assignee. An empty assignee matches
// unassigned tasks.
type ByAssigneeSpecification struct {
	Assignee string
}

func (spec ByAssigneeSpecification) IsSatisfiedBy(ctx context.Context, entity any) bool {
	t, ok := entity.(*Task)
	return ok && t.Assignee() == spec.Assignee
}

// ByProjectSpecification filters tasks by project
type ByProjectSpecification struct {
	ProjectID string
}

func (spec ByProjectSpecification) IsSatisfiedBy(ctx context.Context, entity any) bool {
	t, ok := entity.(*Task)
	return ok && t.ProjectID() == spec.ProjectID
}

// Helper functions for common specifications

func NewByStatusSpecification(status Status) shared.Specification {
	return ByStatusSpecification{Status: status}
}

func NewByAssigneeSpecification(assignee string) shared.Specification {
	return ByAssigneeSpecification{Assignee: assignee}
}

func NewByProjectSpecification(projectID string) shared.Specification {
	return ByProjectSpecification{ProjectID: projectID}
}
