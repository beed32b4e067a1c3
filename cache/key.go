package cache

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-entity-repository/query"
)

// KeySeparator joins cache key segments.
const KeySeparator = "::"

// KeySerializer builds stable cache keys from a prefix and arguments.
type KeySerializer interface {
	SerializeKey(prefix string, args ...any) string
}

// Key joins segments with KeySeparator.
func Key(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// ParamsKey builds the key of a parameterised read as index::method::digest.
// The digest covers the parameters in their insertion order, which is also
// the order the parser turns them into conditions.
func ParamsKey(index, method string, params *query.Params, extra ...any) string {
	h := xxhash.New()
	_, _ = h.WriteString(params.Encode())
	for _, e := range extra {
		_, _ = h.WriteString("|")
		_, _ = h.WriteString(fmt.Sprint(e))
	}
	return Key(index, method, strconv.FormatUint(h.Sum64(), 16))
}

type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the reflection based serializer. Scalars are
// rendered verbatim, maps with sorted keys, query parameters in order, and
// anything else as an xxhash digest of its msgpack encoding.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (s defaultKeySerializer) SerializeKey(prefix string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)
	for _, arg := range args {
		parts = append(parts, s.value(arg))
	}
	return Key(parts...)
}

func (s defaultKeySerializer) value(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return t
	case *query.Params:
		if t == nil {
			return "params:nil"
		}
		return "params:{" + t.Encode() + "}"
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Pointer || !rv.IsNil() {
			return t.String()
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.value(rv.Elem().Interface())
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return fmt.Sprint(v)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "slice:nil"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = s.value(rv.Index(i).Interface())
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ","))
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		pairs := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, s.value(iter.Key().Interface())+"="+s.value(iter.Value().Interface()))
		}
		sort.Strings(pairs)
		return fmt.Sprintf("{%s}", strings.Join(pairs, ","))
	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("%s:%p", rv.Kind(), v)
	case reflect.Struct:
		if walked, ok := s.fields(rv); ok {
			return fmt.Sprintf("%T:%x", v, xxhash.Sum64String(walked))
		}
	}
	return s.digest(v)
}

// fields renders the exported fields of a struct in declaration order, so
// maps nested in the struct are sorted like top-level ones.
func (s defaultKeySerializer) fields(rv reflect.Value) (string, bool) {
	t := rv.Type()
	parts := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		parts = append(parts, f.Name+"="+s.value(rv.Field(i).Interface()))
	}
	if len(parts) == 0 {
		return "", false
	}
	return "{" + strings.Join(parts, ",") + "}", true
}

func (s defaultKeySerializer) digest(v any) string {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%T", v)
	}
	return fmt.Sprintf("%T:%x", v, xxhash.Sum64(buf.Bytes()))
}
