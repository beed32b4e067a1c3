package query

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Condition is a single field predicate.
type Condition struct {
	Field    string
	Operator string
	Value    any
	Occur    Occur
}

// Sort is a single ordering instruction.
type Sort struct {
	Field     string
	Direction string
}

// Request is the state a builder accumulates before execution. Store
// implementations embed it to share the fluent setters.
type Request struct {
	Index      string
	Fields     []string
	Conditions []Condition
	Sorts      []Sort
	Limit      int
	Offset     int
}

// Operators understood by the bundled stores.
var Operators = []string{"=", "!=", "<", "<=", ">", ">=", "like", "in"}

// NormalizeOperator lower cases op and maps common aliases, reporting
// whether the result is supported.
func NormalizeOperator(op string) (string, bool) {
	op = strings.ToLower(strings.TrimSpace(op))
	switch op {
	case "", "==", "eq":
		op = "="
	case "<>", "ne":
		op = "!="
	}
	for _, known := range Operators {
		if op == known {
			return op, true
		}
	}
	return op, false
}

// NormalizeDirection maps a direction to Asc or Desc.
func NormalizeDirection(direction string) string {
	if strings.EqualFold(strings.TrimSpace(direction), Desc) {
		return Desc
	}
	return Asc
}

// AddCondition appends a condition, defaulting the boolean context to Must.
func (r *Request) AddCondition(field, operator string, value any, occur ...Occur) {
	o := Must
	if len(occur) > 0 && occur[0] != "" {
		o = occur[0]
	}
	r.Conditions = append(r.Conditions, Condition{
		Field:    field,
		Operator: operator,
		Value:    value,
		Occur:    o,
	})
}

// AddSort appends an ordering instruction.
func (r *Request) AddSort(field, direction string) {
	r.Sorts = append(r.Sorts, Sort{Field: field, Direction: NormalizeDirection(direction)})
}

// SetFields records the selected fields; "*" or nothing selects all.
func (r *Request) SetFields(fields ...string) {
	r.Fields = r.Fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" && f != "*" {
			r.Fields = append(r.Fields, f)
		}
	}
}

// Validate checks that the request names an index and only uses known operators.
func (r *Request) Validate() error {
	if r.Index == "" {
		return goerrors.New("query: no index selected", goerrors.CategoryBadInput)
	}
	for _, c := range r.Conditions {
		if _, ok := NormalizeOperator(c.Operator); !ok {
			return goerrors.New(fmt.Sprintf("query: unsupported operator %q on %s", c.Operator, c.Field), goerrors.CategoryBadInput)
		}
		switch c.Occur {
		case Must, MustNot, Should, Filter:
		default:
			return goerrors.New(fmt.Sprintf("query: unsupported boolean context %q on %s", c.Occur, c.Field), goerrors.CategoryBadInput)
		}
	}
	return nil
}

// Project keeps only the selected fields of doc, always including "id".
func (r *Request) Project(doc map[string]any) map[string]any {
	if len(r.Fields) == 0 {
		return doc
	}
	out := make(map[string]any, len(r.Fields)+1)
	if id, ok := doc["id"]; ok {
		out["id"] = id
	}
	for _, f := range r.Fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
