package entity

import (
	"reflect"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// typeCacheSize bounds the number of struct layouts kept in memory.
const typeCacheSize = 1024

var (
	recordType = reflect.TypeOf((*Record)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
)

var typeCache = mustTypeCache()

func mustTypeCache() *lru.Cache[reflect.Type, *typeInfo] {
	c, err := lru.New[reflect.Type, *typeInfo](typeCacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

// field describes one exported, addressable property of a struct.
type field struct {
	name  string
	wire  string
	tag   string
	index []int
	typ   reflect.Type
}

type typeInfo struct {
	typ    reflect.Type
	fields []*field
	byWire map[string]*field
	byName map[string]*field
}

// describe returns the cached property layout for the struct type t,
// including promoted fields of embedded structs. Fields declared on the
// outer type shadow promoted ones with the same wire name.
func describe(t reflect.Type) *typeInfo {
	if info, ok := typeCache.Get(t); ok {
		return info
	}

	info := &typeInfo{
		typ:    t,
		byWire: make(map[string]*field),
		byName: make(map[string]*field),
	}
	collectFields(info, t, nil)
	typeCache.Add(t, info)
	return info
}

func collectFields(info *typeInfo, t reflect.Type, prefix []int) {
	var embedded []reflect.StructField

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, skip := jsonName(sf)
		if skip {
			continue
		}

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && name == "" {
			embedded = append(embedded, sf)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		wire := name
		if wire == "" {
			wire = toSnake(sf.Name)
		}
		if _, taken := info.byWire[wire]; taken {
			continue
		}

		f := &field{
			name:  sf.Name,
			wire:  wire,
			tag:   name,
			index: appendIndex(prefix, i),
			typ:   sf.Type,
		}
		info.fields = append(info.fields, f)
		info.byWire[wire] = f
		if _, taken := info.byName[sf.Name]; !taken {
			info.byName[sf.Name] = f
		}
	}

	for _, sf := range embedded {
		collectFields(info, sf.Type, appendIndex(prefix, sf.Index[0]))
	}
}

func appendIndex(prefix []int, i int) []int {
	out := make([]int, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = i
	return out
}

func jsonName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return "", true
	}
	return name, false
}

// lookup resolves a wire key to a property. Keys are tried as written, as
// snake_case, and finally through the camelCase bridge to the Go field name.
func (info *typeInfo) lookup(key string) *field {
	if f, ok := info.byWire[key]; ok {
		return f
	}
	if f, ok := info.byWire[toSnake(key)]; ok {
		return f
	}
	if f, ok := info.byName[toPascal(toCamel(key))]; ok {
		return f
	}
	return info.byName[key]
}

// exact resolves a key only by Go field name or explicit json tag.
func (info *typeInfo) exact(key string) *field {
	if f, ok := info.byName[key]; ok {
		return f
	}
	for _, f := range info.fields {
		if f.tag != "" && f.tag == key {
			return f
		}
	}
	return nil
}

// structOf unwraps pointers and reports the underlying struct value of v.
func structOf(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return rv, true
}

// resolve finds the addressable field value behind property on target.
func resolve(target any, property string) (reflect.Value, *field, bool) {
	rv, ok := structOf(target)
	if !ok {
		return reflect.Value{}, nil, false
	}
	f := describe(rv.Type()).lookup(property)
	if f == nil {
		return reflect.Value{}, nil, false
	}
	fv, err := rv.FieldByIndexErr(f.index)
	if err != nil {
		return reflect.Value{}, nil, false
	}
	return fv, f, true
}

// Get reads a declared property through the generic access path.
func Get(target any, property string) (any, error) {
	fv, _, ok := resolve(target, property)
	if !ok {
		return nil, invalidEntity("property %q is not declared on %T", property, target)
	}
	if !fv.CanInterface() {
		return nil, invalidEntity("property %q on %T is not readable", property, target)
	}
	return fv.Interface(), nil
}

// Set assigns value to a declared property using the hydration conversion rules.
func Set(target any, property string, value any) error {
	fv, _, ok := resolve(target, property)
	if !ok {
		return propertyNotFound(property, target)
	}
	if !fv.CanSet() {
		return invalidEntity("property %q on %T is not writable", property, target)
	}
	return defaultHydrator.assign(fv, value)
}

// Properties lists the wire names of every serializable property of target.
func Properties(target any) []string {
	rv, ok := structOf(target)
	if !ok {
		return nil
	}
	info := describe(rv.Type())
	out := make([]string, 0, len(info.fields))
	for _, f := range info.fields {
		out = append(out, f.wire)
	}
	return out
}
