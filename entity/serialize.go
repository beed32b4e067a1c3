package entity

import (
	"reflect"
	"time"
)

// Serializable is implemented by values that export their own wire form.
type Serializable interface {
	ToMap() map[string]any
}

// ToMap serializes target with the default hydrator.
func ToMap(target any) map[string]any {
	return defaultHydrator.ToMap(target)
}

// ToMap exports every readable property of target keyed by its snake_case
// wire name. Hidden properties are skipped, properties that cannot be read
// are left out, nested records and structs are exported recursively and
// time values are formatted with the configured layout. Falsy top-level
// values are dropped unless the hydrator keeps zero values; nested maps only
// drop nil.
func (h *Hydrator) ToMap(target any) map[string]any {
	rv, ok := structOf(target)
	if !ok {
		return map[string]any{}
	}
	return h.structToMap(rv, true)
}

func (h *Hydrator) structToMap(rv reflect.Value, top bool) map[string]any {
	if !rv.CanAddr() {
		addressable := reflect.New(rv.Type()).Elem()
		addressable.Set(rv)
		rv = addressable
	}
	rec, _ := rv.Addr().Interface().(Record)

	info := describe(rv.Type())
	out := make(map[string]any, len(info.fields))
	for _, f := range info.fields {
		if rec != nil && rec.IsHidden(f.wire) {
			continue
		}
		if rec == nil && isDefaultHidden(f.wire) {
			continue
		}

		value, ok := h.read(rv, f)
		if !ok || value == nil || (top && h.omit(value)) {
			continue
		}
		out[f.wire] = value
	}
	return out
}

func isDefaultHidden(wire string) bool {
	for _, name := range DefaultHidden {
		if name == wire {
			return true
		}
	}
	return false
}

// read extracts one property, reporting false when the value cannot be read.
func (h *Hydrator) read(rv reflect.Value, f *field) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Debug("entity: skipped unreadable property",
				"type", rv.Type().String(),
				"property", f.wire,
				"panic", r,
			)
			value, ok = nil, false
		}
	}()

	fv, err := rv.FieldByIndexErr(f.index)
	if err != nil || !fv.CanInterface() {
		return nil, false
	}
	return h.extract(fv), true
}

func (h *Hydrator) extract(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
	}

	iv := v.Interface()
	switch x := iv.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x.Format(h.dateFormat)
	case *time.Time:
		if x.IsZero() {
			return nil
		}
		return x.Format(h.dateFormat)
	case Serializable:
		return x.ToMap()
	}
	if v.Kind() == reflect.Struct && v.CanAddr() {
		if s, ok := v.Addr().Interface().(Serializable); ok && !v.Addr().Type().Implements(recordType) {
			return s.ToMap()
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return h.extract(v.Elem())
	case reflect.Struct:
		return h.structToMap(v, false)
	case reflect.Slice, reflect.Array:
		if !needsExtraction(v.Type().Elem()) {
			return iv
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = h.extract(v.Index(i))
		}
		return out
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String || !needsExtraction(v.Type().Elem()) {
			return iv
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = h.extract(iter.Value())
		}
		return out
	}
	return iv
}

// needsExtraction reports whether values of t can hold nested structs or
// times that must be converted before export.
func needsExtraction(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// omit applies the export filter. By default every falsy value (nil, zero,
// false, empty string, empty collection) is dropped.
func (h *Hydrator) omit(value any) bool {
	if value == nil {
		return true
	}
	if h.keepZero {
		return false
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return rv.IsZero()
}
