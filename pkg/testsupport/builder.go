package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-entity-repository/query"
)

// Call is a single method invocation captured by RecordingBuilder.
type Call struct {
	Method string
	Args   []any
}

// RecordingBuilder is a query.Builder stub that records every call and
// returns canned results. The embedded Request mirrors the accumulated state.
type RecordingBuilder struct {
	query.Request

	mu    sync.Mutex
	calls []Call

	InsertResult  query.Result
	UpdateResult  query.Result
	DeleteResult  query.Result
	ExecuteResult query.Result
	CountResult   int
	Err           error
}

var _ query.Builder = (*RecordingBuilder)(nil)

// NewRecordingBuilder returns a builder whose results report success.
func NewRecordingBuilder() *RecordingBuilder {
	return &RecordingBuilder{
		InsertResult:  query.Result{Status: query.StatusCreated},
		UpdateResult:  query.Result{Status: query.StatusUpdated},
		DeleteResult:  query.Result{Status: query.StatusDeleted},
		ExecuteResult: query.Result{Status: query.StatusOK},
	}
}

func (b *RecordingBuilder) record(method string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Method: method, Args: args})
}

// Calls returns a copy of the recorded calls.
func (b *RecordingBuilder) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo returns the recorded calls to method, in order.
func (b *RecordingBuilder) CallsTo(method string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Methods returns the recorded method names, in order.
func (b *RecordingBuilder) Methods() []string {
	calls := b.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

func (b *RecordingBuilder) Select(fields ...string) query.Builder {
	b.record("Select", toAny(fields)...)
	b.SetFields(fields...)
	return b
}

func (b *RecordingBuilder) From(index string) query.Builder {
	b.record("From", index)
	b.Index = index
	return b
}

func (b *RecordingBuilder) Into(index string) query.Builder {
	b.record("Into", index)
	b.Index = index
	return b
}

func (b *RecordingBuilder) Where(field, operator string, value any, occur ...query.Occur) query.Builder {
	b.AddCondition(field, operator, value, occur...)
	b.record("Where", field, operator, value, b.Conditions[len(b.Conditions)-1].Occur)
	return b
}

func (b *RecordingBuilder) OrderBy(field, direction string) query.Builder {
	b.record("OrderBy", field, direction)
	b.AddSort(field, direction)
	return b
}

func (b *RecordingBuilder) Limit(n int) query.Builder {
	b.record("Limit", n)
	b.Request.Limit = n
	return b
}

func (b *RecordingBuilder) Offset(n int) query.Builder {
	b.record("Offset", n)
	b.Request.Offset = n
	return b
}

func (b *RecordingBuilder) Insert(_ context.Context, data map[string]any) (query.Result, error) {
	b.record("Insert", data)
	return b.InsertResult, b.Err
}

func (b *RecordingBuilder) Update(_ context.Context, id string, data map[string]any) (query.Result, error) {
	b.record("Update", id, data)
	return b.UpdateResult, b.Err
}

func (b *RecordingBuilder) Delete(_ context.Context, id string) (query.Result, error) {
	b.record("Delete", id)
	return b.DeleteResult, b.Err
}

func (b *RecordingBuilder) Count(context.Context) (int, error) {
	b.record("Count")
	return b.CountResult, b.Err
}

func (b *RecordingBuilder) Execute(context.Context) (query.Result, error) {
	b.record("Execute")
	return b.ExecuteResult, b.Err
}

// StubStore hands out RecordingBuilders, letting Prepare configure each one
// before use.
type StubStore struct {
	mu       sync.Mutex
	builders []*RecordingBuilder

	Prepare func(b *RecordingBuilder)
}

var _ query.Store = (*StubStore)(nil)

// Builder implements query.Store.
func (s *StubStore) Builder() query.Builder {
	b := NewRecordingBuilder()
	if s.Prepare != nil {
		s.Prepare(b)
	}
	s.mu.Lock()
	s.builders = append(s.builders, b)
	s.mu.Unlock()
	return b
}

// Builders returns every builder handed out so far.
func (s *StubStore) Builders() []*RecordingBuilder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*RecordingBuilder(nil), s.builders...)
}

// Last returns the most recent builder, or nil.
func (s *StubStore) Last() *RecordingBuilder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.builders) == 0 {
		return nil
	}
	return s.builders[len(s.builders)-1]
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
