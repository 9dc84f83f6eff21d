package shared

import (
	"fmt"
	"reflect"
)

// Identifiable is anything with an identity that can be compared across instances.
// Entity implements it; aggregates and child entities get it by embedding.
type Identifiable interface {
	IdentityValue() any
	IsTransient() bool
}

// Entity 实体基础结构，嵌入到具体实体中使用
// 实体通过标识判断相等性（即使属性相同，ID不同就是不同的实体）
type Entity[ID comparable] struct {
	id ID
}

// NewEntity creates an entity with the given identity.
func NewEntity[ID comparable](id ID) Entity[ID] {
	return Entity[ID]{id: id}
}

func (e *Entity[ID]) ID() ID {
	return e.id
}

func (e *Entity[ID]) IdentityValue() any {
	return e.id
}

// IsTransient reports whether the identity is still the zero value.
func (e *Entity[ID]) IsTransient() bool {
	var zero ID
	return e.id == zero
}

// AssignID sets the identity of a transient entity. Storage layers that generate
// keys use it; any later call fails.
func (e *Entity[ID]) AssignID(id ID) error {
	if !e.IsTransient() {
		return fmt.Errorf("%w: %v", ErrIdentityAssigned, e.id)
	}
	e.id = id
	return nil
}

// IdentityKey is a comparable value usable as a map key. Two instances of the same
// concrete type with the same id produce equal keys.
type IdentityKey struct {
	Type reflect.Type
	ID   any
}

func (k IdentityKey) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%v)", k.Type, k.ID)
}

// KeyOf returns the identity key of v. Transient entities have no identity yet,
// so their key falls back to the instance itself.
func KeyOf(v Identifiable) IdentityKey {
	if v == nil {
		return IdentityKey{}
	}
	if v.IsTransient() {
		return IdentityKey{Type: reflect.TypeOf(v), ID: v}
	}
	return IdentityKey{Type: reflect.TypeOf(v), ID: v.IdentityValue()}
}

// KeyFor builds the key a *T with the given id would have, without an instance.
func KeyFor[T any](id any) IdentityKey {
	return IdentityKey{Type: reflect.TypeFor[T](), ID: id}
}

// SameIdentity reports whether a and b are the same entity: same concrete type, same id.
func SameIdentity(a, b Identifiable) bool {
	if a == nil || b == nil {
		return false
	}
	return KeyOf(a) == KeyOf(b)
}
