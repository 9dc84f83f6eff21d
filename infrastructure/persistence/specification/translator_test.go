package specification

import (
	"context"
	"testing"

	"tasktrack/domain/shared"
	"tasktrack/domain/task"

	"github.com/stretchr/testify/assert"
)

type unknownSpec struct{}

func (unknownSpec) IsSatisfiedBy(context.Context, interface{}) bool { return true }

func TestTranslateSupportedSpecifications(t *testing.T) {
	tr := NewGormTranslator()

	status := task.NewByStatusSpecification(task.StatusDone)
	assignee := task.NewByAssigneeSpecification("bob")

	assert.Nil(t, tr.Translate(nil))
	assert.NotNil(t, tr.Translate(status))
	assert.NotNil(t, tr.Translate(task.NewByProjectSpecification("proj-1")))
	assert.NotNil(t, tr.Translate(shared.And(status, assignee)))
	assert.NotNil(t, tr.Translate(shared.Or(status, assignee)))
	assert.NotNil(t, tr.Translate(shared.Not(status)))
}

func TestTranslateRejectsUnknownParts(t *testing.T) {
	tr := NewGormTranslator()
	status := task.NewByStatusSpecification(task.StatusDone)

	assert.Nil(t, tr.Translate(unknownSpec{}))
	assert.Nil(t, tr.Translate(shared.And(status, unknownSpec{})))
	assert.Nil(t, tr.Translate(shared.Or(unknownSpec{}, status)))
	assert.Nil(t, tr.Translate(shared.Not(unknownSpec{})))
}
