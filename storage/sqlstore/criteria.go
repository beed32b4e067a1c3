package sqlstore

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-entity-repository/query"
)

type predicate struct {
	sql  string
	args []any
}

// criteria compiles the request conditions into select criteria: must and
// filter predicates are ANDed, must_not predicates are negated treating NULL
// as no match, and should predicates form one OR group.
func (s *Store) criteria(r *query.Request) []repository.SelectCriteria {
	out := []repository.SelectCriteria{repository.SelectBy("index_name", "=", r.Index)}

	var should []predicate
	for _, c := range r.Conditions {
		p := s.predicate(c)
		switch c.Occur {
		case query.MustNot:
			out = append(out, where(negate(p)))
		case query.Should:
			should = append(should, p)
		default:
			out = append(out, where(p))
		}
	}

	if len(should) > 0 {
		group := should
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				for _, p := range group {
					q = q.WhereOr(p.sql, p.args...)
				}
				return q
			})
		})
	}
	return out
}

// ordering returns criteria applying the request sorts, or insertion order.
func (s *Store) ordering(r *query.Request) repository.SelectCriteria {
	sorts := r.Sorts
	if len(sorts) == 0 {
		return repository.OrderBy("d.created_at ASC", "d.id ASC")
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, srt := range sorts {
			expr, args := s.field(srt.Field)
			dir := "ASC"
			if srt.Direction == query.Desc {
				dir = "DESC"
			}
			q = q.OrderExpr(expr+" "+dir, args...)
		}
		return q
	}
}

// window returns the pagination criteria of a request. SQLite rejects an
// OFFSET without a LIMIT, so an open window gets the largest limit bun can
// render.
func (s *Store) window(r *query.Request) repository.SelectCriteria {
	limit, offset := r.Limit, r.Offset
	switch {
	case limit > 0:
		return repository.SelectPaginate(limit, max(offset, 0))
	case offset > 0 && !s.postgres:
		return repository.SelectPaginate(math.MaxInt32, offset)
	case offset > 0:
		return func(q *bun.SelectQuery) *bun.SelectQuery { return q.Offset(offset) }
	}
	return nil
}

func where(p predicate) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(p.sql, p.args...)
	}
}

func negate(p predicate) predicate {
	return predicate{sql: "NOT COALESCE((" + p.sql + "), FALSE)", args: p.args}
}

// field returns the SQL expression reading a document field. The id lives in
// its own column; everything else is extracted from the JSON body, with
// dotted names addressing nested objects.
func (s *Store) field(name string) (string, []any) {
	if name == "id" {
		return "d.id", nil
	}
	if s.postgres {
		return "(d.body::jsonb #>> ?)", []any{"{" + strings.ReplaceAll(name, ".", ",") + "}"}
	}
	return "json_extract(d.body, ?)", []any{"$." + name}
}

func (s *Store) predicate(c query.Condition) predicate {
	op, _ := query.NormalizeOperator(c.Operator)
	expr, fargs := s.field(c.Field)

	switch op {
	case "=":
		return s.equal(expr, fargs, c.Value)
	case "!=":
		return negate(s.equal(expr, fargs, c.Value))
	case "<", "<=", ">", ">=":
		v := coerce(c.Value)
		if s.postgres {
			if isNumber(v) {
				return predicate{sql: "(" + expr + ")::numeric " + op + " ?", args: append(fargs, v)}
			}
			return predicate{sql: expr + " " + op + " ?", args: append(fargs, text(v))}
		}
		return predicate{sql: expr + " " + op + " ?", args: append(fargs, v)}
	case "like":
		if s.postgres {
			return predicate{sql: expr + " ILIKE ?", args: append(fargs, text(c.Value))}
		}
		return predicate{sql: expr + " LIKE ?", args: append(fargs, text(c.Value))}
	case "in":
		var values []any
		for _, candidate := range candidates(c.Value) {
			values = append(values, s.variants(candidate)...)
		}
		if len(values) == 0 {
			return predicate{sql: "1 = 0"}
		}
		return predicate{sql: expr + " IN (?)", args: append(fargs, bun.In(values))}
	}
	return predicate{sql: "1 = 0"}
}

func (s *Store) equal(expr string, fargs []any, value any) predicate {
	if value == nil {
		return predicate{sql: expr + " IS NULL", args: fargs}
	}
	variants := s.variants(value)
	parts := make([]string, len(variants))
	var args []any
	for i, v := range variants {
		parts[i] = expr + " = ?"
		args = append(args, fargs...)
		args = append(args, v)
	}
	return predicate{sql: strings.Join(parts, " OR "), args: args}
}

// variants lists the values a stored field may hold for a query value.
// Postgres compares the text rendering. SQLite compares typed JSON values,
// so a string that reads as a number or boolean also matches that type.
func (s *Store) variants(value any) []any {
	if s.postgres {
		return []any{text(value)}
	}
	v := coerce(value)
	if b, ok := v.(bool); ok {
		if b {
			v = 1
		} else {
			v = 0
		}
	}
	if str, ok := value.(string); ok && v != value {
		return []any{str, v}
	}
	return []any{v}
}

// coerce turns numeric and boolean strings into typed values.
func coerce(value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	trimmed := strings.TrimSpace(str)
	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return value
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func text(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(value)
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
