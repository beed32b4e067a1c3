package entity

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"time"
)

// DefaultDateFormat is the layout used to serialize time values.
const DefaultDateFormat = time.RFC3339

// Hydrator maps wire data onto typed records and back. The zero value is not
// usable; construct one with NewHydrator. A Hydrator is safe for concurrent
// use once built.
type Hydrator struct {
	factory    Factory
	relations  *Relations
	dateFormat string
	keepZero   bool
	logger     *slog.Logger
}

// Option configures a Hydrator.
type Option func(*Hydrator)

// WithFactory sets the factory used to build nested records from maps.
func WithFactory(f Factory) Option {
	return func(h *Hydrator) {
		h.factory = f
	}
}

// WithRelations installs explicit per-property builders that take precedence
// over the static field type.
func WithRelations(r *Relations) Option {
	return func(h *Hydrator) {
		h.relations = r
	}
}

// WithDateFormat overrides the layout used to serialize and parse time values.
func WithDateFormat(layout string) Option {
	return func(h *Hydrator) {
		if layout != "" {
			h.dateFormat = layout
		}
	}
}

// WithKeepZeroValues makes ToMap drop only nil values, keeping explicit
// zeros, false and empty strings.
func WithKeepZeroValues() Option {
	return func(h *Hydrator) {
		h.keepZero = true
	}
}

// WithLogger sets the logger used to report properties skipped during export.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hydrator) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHydrator builds a Hydrator with the given options.
func NewHydrator(opts ...Option) *Hydrator {
	h := &Hydrator{
		dateFormat: DefaultDateFormat,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var defaultHydrator = NewHydrator()

// Hydrate populates target from data using a hydrator without factory.
func Hydrate(target any, data map[string]any) error {
	return defaultHydrator.Hydrate(target, data)
}

// Factory returns the factory bound to the hydrator, if any.
func (h *Hydrator) Factory() Factory {
	return h.factory
}

// DateFormat returns the layout used for time values.
func (h *Hydrator) DateFormat() string {
	return h.dateFormat
}

// Hydrate merges data into target, which must be a non-nil pointer to a
// struct. Keys that do not resolve to a property are ignored; properties not
// named in data keep their current value.
func (h *Hydrator) Hydrate(target any, data map[string]any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return invalidEntity("hydrate target must be a non-nil struct pointer, got %T", target)
	}

	elem := rv.Elem()
	info := describe(elem.Type())

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		f := info.lookup(key)
		if f == nil {
			continue
		}

		value := data[key]
		if f.wire == "id" {
			if _, isBool := value.(bool); isBool {
				value = PlaceholderID
			}
		}

		fv, err := elem.FieldByIndexErr(f.index)
		if err != nil || !fv.CanSet() {
			continue
		}

		if fn, ok := h.relations.lookup(elem.Type(), f.wire); ok {
			built, err := fn(value, h)
			if err != nil {
				return fmt.Errorf("hydrate %s.%s: %w", elem.Type().Name(), f.name, err)
			}
			value = built
		}

		if err := h.assign(fv, value); err != nil {
			return invalidEntity("hydrate %s.%s: %v", elem.Type().Name(), f.name, err)
		}
	}

	return nil
}

// assign stores value into dst, building related values and converting
// between compatible kinds.
func (h *Hydrator) assign(dst reflect.Value, value any) error {
	t := dst.Type()
	if value == nil {
		dst.Set(reflect.Zero(t))
		return nil
	}

	switch {
	case t == timeType || (t.Kind() == reflect.Pointer && t.Elem() == timeType):
		return h.assignTime(dst, value)
	case isRelated(t):
		return h.assignRelated(dst, value)
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(t) {
		dst.Set(src)
		return nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		n := reflect.New(t.Elem())
		if err := h.assign(n.Elem(), value); err != nil {
			return err
		}
		dst.Set(n)
		return nil
	case reflect.Slice:
		if src.Kind() == reflect.Slice || src.Kind() == reflect.Array {
			n := reflect.MakeSlice(t, src.Len(), src.Len())
			for i := 0; i < src.Len(); i++ {
				if err := h.assign(n.Index(i), src.Index(i).Interface()); err != nil {
					return fmt.Errorf("index %d: %w", i, err)
				}
			}
			dst.Set(n)
			return nil
		}
	case reflect.Map:
		if src.Kind() == reflect.Map {
			n := reflect.MakeMapWithSize(t, src.Len())
			iter := src.MapRange()
			for iter.Next() {
				k := reflect.New(t.Key()).Elem()
				if err := h.assign(k, iter.Key().Interface()); err != nil {
					return err
				}
				v := reflect.New(t.Elem()).Elem()
				if err := h.assign(v, iter.Value().Interface()); err != nil {
					return fmt.Errorf("key %v: %w", iter.Key().Interface(), err)
				}
				n.SetMapIndex(k, v)
			}
			dst.Set(n)
			return nil
		}
	}

	converted, err := convertScalar(src, t)
	if err != nil {
		return err
	}
	dst.Set(converted)
	return nil
}

func (h *Hydrator) assignTime(dst reflect.Value, value any) error {
	var ts time.Time
	switch v := value.(type) {
	case time.Time:
		ts = v
	case *time.Time:
		if v == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		ts = *v
	case string:
		if v == "" {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		parsed, err := h.parseTime(v)
		if err != nil {
			return err
		}
		ts = parsed
	default:
		return fmt.Errorf("cannot use %T as time value", value)
	}

	if dst.Kind() == reflect.Pointer {
		dst.Set(reflect.ValueOf(&ts))
		return nil
	}
	dst.Set(reflect.ValueOf(ts))
	return nil
}

func (h *Hydrator) parseTime(s string) (time.Time, error) {
	layouts := []string{time.RFC3339Nano, h.dateFormat, time.DateTime, time.DateOnly}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

// assignRelated builds a nested struct or record for dst from value. Maps
// go through the factory when one is bound and the type is a record, and are
// otherwise hydrated in place. Scalars become the nested record identifier.
func (h *Hydrator) assignRelated(dst reflect.Value, value any) error {
	t := dst.Type()
	st := t
	if t.Kind() == reflect.Pointer {
		st = t.Elem()
	}

	src := reflect.ValueOf(value)
	switch {
	case src.Type().AssignableTo(t):
		dst.Set(src)
		return nil
	case t.Kind() == reflect.Pointer && src.Type() == st:
		n := reflect.New(st)
		n.Elem().Set(src)
		dst.Set(n)
		return nil
	case t.Kind() == reflect.Struct && src.Kind() == reflect.Pointer && src.Type().Elem() == st:
		if src.IsNil() {
			dst.Set(reflect.Zero(t))
			return nil
		}
		dst.Set(src.Elem())
		return nil
	}

	isRecord := reflect.PointerTo(st).Implements(recordType)
	data, isMap := asMap(value)

	var inst reflect.Value
	switch {
	case isMap && isRecord && h.factory != nil:
		obj, err := h.factory.Create(reflect.PointerTo(st), data)
		if err != nil {
			return err
		}
		built := reflect.ValueOf(obj)
		switch {
		case built.Type() == reflect.PointerTo(st):
			inst = built
		case built.Type() == st:
			inst = reflect.New(st)
			inst.Elem().Set(built)
		default:
			return fmt.Errorf("factory built %T, want %s", obj, st)
		}
	case isMap:
		inst = reflect.New(st)
		if err := h.Hydrate(inst.Interface(), data); err != nil {
			return err
		}
	default:
		inst = reflect.New(st)
		if isRecord {
			inst.Interface().(Record).SetID(fmt.Sprint(value))
		}
	}

	if t.Kind() == reflect.Pointer {
		dst.Set(inst)
		return nil
	}
	dst.Set(inst.Elem())
	return nil
}

// isRelated reports whether t is a struct, or pointer to struct, that is
// built from nested wire data rather than assigned verbatim.
func isRelated(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != timeType
}

// asMap converts any string keyed map into map[string]any.
func asMap(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
