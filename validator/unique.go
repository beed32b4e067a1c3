package validator

import (
	"context"
	"fmt"
	"reflect"

	"github.com/goliatone/go-entity-repository/entity"
)

// UniqueLookup answers whether another document already holds value in field.
// Documents with the identifier excludeID are ignored.
type UniqueLookup interface {
	ExistsWhere(ctx context.Context, field string, value any, excludeID string) (bool, error)
}

// UniqueValidator rejects values already stored for the property. On update
// the record's own document is excluded.
type UniqueValidator struct {
	base
	lookup UniqueLookup
	field  string
}

var (
	_ entity.Validator = (*UniqueValidator)(nil)
	_ entity.Cloner    = (*UniqueValidator)(nil)
)

// Unique builds a validator backed by lookup. The stored field defaults to
// the snake_case property name; pass field to override it.
func Unique(lookup UniqueLookup, field ...string) *UniqueValidator {
	v := &UniqueValidator{lookup: lookup}
	if len(field) > 0 {
		v.field = field[0]
	}
	return v
}

func (v *UniqueValidator) Validate(ctx context.Context, value any) bool {
	if isEmpty(value) {
		return true
	}
	field := v.field
	if field == "" {
		field = entity.SnakeCase(v.property)
	}
	exclude := ""
	if v.state == entity.Update {
		exclude = v.identifier
	}

	exists, err := v.lookup.ExistsWhere(ctx, field, value, exclude)
	if err != nil {
		return v.fail(fmt.Sprintf("could not check uniqueness: %v", err))
	}
	if exists {
		return v.fail("has already been taken")
	}
	return true
}

// Clone implements entity.Cloner.
func (v *UniqueValidator) Clone() entity.Validator {
	return &UniqueValidator{lookup: v.lookup, field: v.field}
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}
