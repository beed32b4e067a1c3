package query

import "context"

// Occur is the boolean context a condition contributes to.
type Occur string

const (
	Must    Occur = "must"
	MustNot Occur = "must_not"
	Should  Occur = "should"
	Filter  Occur = "filter"
)

// Result statuses reported by a store.
const (
	StatusOK       = "ok"
	StatusCreated  = "created"
	StatusUpdated  = "updated"
	StatusDeleted  = "deleted"
	StatusNoop     = "noop"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Result is the outcome of a store round trip. Writes report the affected
// document in Data, queries report matching documents in Rows.
type Result struct {
	Status   string
	Data     map[string]any
	Rows     []map[string]any
	Error    string
	Affected int
}

// OK reports whether the status is one of the given values.
func (r Result) OK(statuses ...string) bool {
	for _, s := range statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// Builder accumulates a request against one index and executes it. Builders
// are single use and not safe for concurrent use; obtain a fresh one from a
// Store for every operation.
type Builder interface {
	Select(fields ...string) Builder
	From(index string) Builder
	Into(index string) Builder
	Where(field, operator string, value any, occur ...Occur) Builder
	OrderBy(field, direction string) Builder
	Limit(n int) Builder
	Offset(n int) Builder

	Insert(ctx context.Context, data map[string]any) (Result, error)
	Update(ctx context.Context, id string, data map[string]any) (Result, error)
	Delete(ctx context.Context, id string) (Result, error)
	Count(ctx context.Context) (int, error)
	Execute(ctx context.Context) (Result, error)
}

// Store hands out builders bound to a document store.
type Store interface {
	Builder() Builder
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func() Builder

// Builder implements Store.
func (f StoreFunc) Builder() Builder { return f() }
