package memory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-entity-repository/query"
)

// matches applies boolean query semantics: every must and filter condition
// holds, no must_not condition holds, and when should conditions exist at
// least one of them holds.
func matches(doc map[string]any, conditions []query.Condition) bool {
	var should, shouldHit bool
	for _, c := range conditions {
		hit := evaluate(doc, c)
		switch c.Occur {
		case query.Must, query.Filter:
			if !hit {
				return false
			}
		case query.MustNot:
			if hit {
				return false
			}
		case query.Should:
			should = true
			shouldHit = shouldHit || hit
		}
	}
	return !should || shouldHit
}

func evaluate(doc map[string]any, c query.Condition) bool {
	op, _ := query.NormalizeOperator(c.Operator)
	actual := lookup(doc, c.Field)

	switch op {
	case "=":
		return equalValues(actual, c.Value)
	case "!=":
		return !equalValues(actual, c.Value)
	case "<", "<=", ">", ">=":
		if actual == nil || c.Value == nil {
			return false
		}
		cmp := compareValues(actual, c.Value)
		switch op {
		case "<":
			return cmp < 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		default:
			return cmp >= 0
		}
	case "like":
		s, ok := actual.(string)
		return ok && likeMatch(s, fmt.Sprint(c.Value))
	case "in":
		for _, candidate := range candidates(c.Value) {
			if equalValues(actual, candidate) {
				return true
			}
		}
	}
	return false
}

// lookup resolves dotted paths into nested maps.
func lookup(doc map[string]any, field string) any {
	var current any = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// equalValues compares a stored value with a query value. Query values often
// arrive as strings, so mixed comparisons fall back to string forms.
func equalValues(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	if a, ok := toFloat(actual); ok {
		if e, ok := toFloat(expected); ok {
			return a == e
		}
	}
	return stringOf(actual) == stringOf(expected)
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(stringOf(a), stringOf(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func candidates(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		var out []any
		for _, s := range strings.Split(t, ",") {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	}
	return []any{v}
}

// likeMatch implements SQL LIKE with % and _ wildcards, case insensitive.
func likeMatch(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	return err == nil && re.MatchString(s)
}
