package query

import (
	"strconv"
	"strings"
)

// Parse translates request parameters into builder calls and returns b.
//
//   - _fields selects a comma separated field list, "*" by default; Select is
//     always called.
//   - _per_page, when present and a valid integer, sets the limit.
//   - _sort is a comma separated list of field[:direction]; direction
//     defaults to asc.
//   - every key not starting with "_" becomes an equality condition, in
//     insertion order.
//
// Other reserved keys, such as _page, are left to the caller.
func Parse(params *Params, b Builder) Builder {
	fields := "*"
	if v, ok := params.Get(ParamFields); ok && strings.TrimSpace(v) != "" {
		fields = v
	}
	b.Select(splitList(fields)...)

	if v, ok := params.Get(ParamPerPage); ok && v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			b.Limit(n)
		}
	}

	if v, ok := params.Get(ParamSort); ok {
		for _, segment := range splitList(v) {
			field, direction, found := strings.Cut(segment, ":")
			if !found || strings.TrimSpace(direction) == "" {
				direction = Asc
			}
			b.OrderBy(strings.TrimSpace(field), strings.TrimSpace(direction))
		}
	}

	for _, key := range params.Keys() {
		if strings.HasPrefix(key, "_") {
			continue
		}
		value, _ := params.Get(key)
		b.Where(key, "=", value)
	}

	return b
}

// PageParams reads _page and _per_page, falling back to the given defaults
// for missing or non positive values.
func PageParams(params *Params, page, perPage int) (int, int) {
	if v, ok := params.Get(ParamPage); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			page = n
		}
	}
	if v, ok := params.Get(ParamPerPage); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			perPage = n
		}
	}
	return page, perPage
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
