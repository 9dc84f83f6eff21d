package specification

import (
	"tasktrack/domain/shared"
	"tasktrack/domain/task"

	"gorm.io/gorm"
)

// Translator converts domain specifications to GORM queries
// DDD principle: Infrastructure layer handles framework-specific concerns
type Translator interface {
	// Translate converts a domain specification to a GORM query function
	// Returns nil if the specification type, or any part of a composite, is not supported
	Translate(spec shared.Specification) func(*gorm.DB) *gorm.DB
}

// GormTranslator implements Translator for GORM
type GormTranslator struct{}

// NewGormTranslator creates a new GORM translator
func NewGormTranslator() *GormTranslator {
	return &GormTranslator{}
}

// Translate converts a domain specification to a GORM query function
func (t *GormTranslator) Translate(spec shared.Specification) func(*gorm.DB) *gorm.DB {
	if spec == nil {
		return nil
	}

	switch s := spec.(type) {
	case shared.AndSpecification:
		return t.translateAnd(s)
	case shared.OrSpecification:
		return t.translateOr(s)
	case shared.NotSpecification:
		return t.translateNot(s)
	}
	return t.translateConcrete(spec)
}

func (t *GormTranslator) translateAnd(spec shared.AndSpecification) func(*gorm.DB) *gorm.DB {
	left, right := t.Translate(spec.Left), t.Translate(spec.Right)
	if left == nil || right == nil {
		return nil
	}
	return func(db *gorm.DB) *gorm.DB {
		return right(left(db))
	}
}

// translateOr groups each side so the OR never binds to conditions already on db.
func (t *GormTranslator) translateOr(spec shared.OrSpecification) func(*gorm.DB) *gorm.DB {
	left, right := t.Translate(spec.Left), t.Translate(spec.Right)
	if left == nil || right == nil {
		return nil
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(left(fresh(db)).Or(right(fresh(db))))
	}
}

func (t *GormTranslator) translateNot(spec shared.NotSpecification) func(*gorm.DB) *gorm.DB {
	inner := t.Translate(spec.Spec)
	if inner == nil {
		return nil
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Not(inner(fresh(db)))
	}
}

// translateConcrete translates concrete domain specifications
func (t *GormTranslator) translateConcrete(spec shared.Specification) func(*gorm.DB) *gorm.DB {
	switch s := spec.(type) {
	case task.ByStatusSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", string(s.Status))
		}
	case task.ByAssigneeSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("assignee = ?", s.Assignee)
		}
	case task.ByProjectSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("project_id = ?", s.ProjectID)
		}
	}

	// Unknown specification type
	return nil
}

// fresh returns a condition-free db for building a grouped clause.
func fresh(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true})
}
