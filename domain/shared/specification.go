package shared

import "context"

// Specification 规约：封装一条查询条件，可在内存中求值，也可由基础设施层翻译为 SQL。
// entity 需由具体规约自行断言为期望的领域类型，类型不符时视为不满足。
type Specification interface {
	IsSatisfiedBy(ctx context.Context, entity any) bool
}

// AndSpecification is satisfied when both sides are.
type AndSpecification struct {
	Left  Specification
	Right Specification
}

func (spec AndSpecification) IsSatisfiedBy(ctx context.Context, entity any) bool {
	return spec.Left.IsSatisfiedBy(ctx, entity) && spec.Right.IsSatisfiedBy(ctx, entity)
}

func And(left, right Specification) Specification {
	return AndSpecification{Left: left, Right: right}
}

// OrSpecification is satisfied when either side is.
type OrSpecification struct {
	Left  Specification
	Right Specification
}

func (spec OrSpecification) IsSatisfiedBy(ctx context.Context, entity any) bool {
	return spec.Left.IsSatisfiedBy(ctx, entity) || spec.Right.IsSatisfiedBy(ctx, entity)
}

func Or(left, right Specification) Specification {
	return OrSpecification{Left: left, Right: right}
}

// NotSpecification negates Spec.
type NotSpecification struct {
	Spec Specification
}

func (spec NotSpecification) IsSatisfiedBy(ctx context.Context, entity any) bool {
	return !spec.Spec.IsSatisfiedBy(ctx, entity)
}

func Not(inner Specification) Specification {
	return NotSpecification{Spec: inner}
}

// AllOf folds specs into a left-nested And chain, skipping nil entries. It returns
// nil when nothing is left, meaning no filter.
func AllOf(specs ...Specification) Specification {
	var out Specification
	for _, s := range specs {
		switch {
		case s == nil:
		case out == nil:
			out = s
		default:
			out = And(out, s)
		}
	}
	return out
}
