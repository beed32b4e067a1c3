package cache

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot encodes v with msgpack, reading field names from json tags so
// the cached form matches the wire names.
func Snapshot(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore decodes a snapshot into a fresh T, so callers never share the
// cached object graph. Untyped numbers come back as int64, uint64 or float64.
func Restore[T any](data []byte) (T, error) {
	var out T
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	dec.UseLooseInterfaceDecoding(true)
	err := dec.Decode(&out)
	return out, err
}
