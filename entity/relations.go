package entity

import (
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// RelationFunc builds the value stored in a related property from raw wire data.
type RelationFunc func(value any, h *Hydrator) (any, error)

type relationKey struct {
	owner    reflect.Type
	property string
}

// Relations maps (owner type, property) pairs to explicit builders. It is
// used when the static field type is not enough to pick a construction path,
// for example interface typed fields or references that must stay id only.
type Relations struct {
	m *xsync.MapOf[relationKey, RelationFunc]
}

// NewRelations returns an empty registry.
func NewRelations() *Relations {
	return &Relations{m: xsync.NewMapOf[relationKey, RelationFunc]()}
}

// Register binds fn to the property of owner. owner may be a value, a
// pointer or a reflect.Type.
func (r *Relations) Register(owner any, property string, fn RelationFunc) {
	r.m.Store(relationKey{owner: ownerType(owner), property: toSnake(property)}, fn)
}

func (r *Relations) lookup(owner reflect.Type, property string) (RelationFunc, bool) {
	if r == nil {
		return nil, false
	}
	return r.m.Load(relationKey{owner: owner, property: property})
}

func ownerType(owner any) reflect.Type {
	t, ok := owner.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(owner)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Reference builds an id only instance of the related record, whatever the
// shape of the incoming value.
func Reference[T any, PT interface {
	*T
	Record
}]() RelationFunc {
	return func(value any, _ *Hydrator) (any, error) {
		if value == nil {
			return nil, nil
		}
		ref := PT(new(T))
		if m, ok := asMap(value); ok {
			if id, found := m["id"]; found && id != nil {
				ref.SetID(fmt.Sprint(id))
			}
			return ref, nil
		}
		ref.SetID(fmt.Sprint(value))
		return ref, nil
	}
}
