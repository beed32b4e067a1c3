package query

import (
	"net/url"
	"sort"
	"strings"
)

// Reserved parameter keys.
const (
	ParamFields  = "_fields"
	ParamSort    = "_sort"
	ParamPerPage = "_per_page"
	ParamPage    = "_page"
)

// Params is a string map that remembers insertion order, so filters are
// applied in the order the caller supplied them.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds Params from alternating key, value pairs. A trailing key
// without value is stored with an empty value.
func NewParams(kv ...string) *Params {
	p := &Params{values: make(map[string]string, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		p.Set(kv[i], v)
	}
	return p
}

// ParseQueryString parses a raw URL query keeping the order in which keys
// first appear. Repeated keys keep their first position and last value.
func ParseQueryString(raw string) (*Params, error) {
	p := NewParams()
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		p.Set(key, value)
	}
	return p, nil
}

// FromValues converts url.Values using sorted key order, since the map
// carries no order of its own. Only the first value of each key is kept.
func FromValues(values url.Values) *Params {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := NewParams()
	for _, k := range keys {
		p.Set(k, values.Get(k))
	}
	return p
}

// Set stores value under key, keeping the original position of existing keys.
func (p *Params) Set(key, value string) *Params {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// Delete removes key.
func (p *Params) Delete(key string) {
	if p == nil {
		return
	}
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Len returns the number of keys.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	out := NewParams()
	for _, k := range p.Keys() {
		out.Set(k, p.values[k])
	}
	return out
}

// Encode renders the params as a query string in insertion order.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, k := range p.Keys() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[k]))
	}
	return b.String()
}
