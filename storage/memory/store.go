package memory

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-entity-repository/query"
)

// ErrDuplicateKey is the error string reported when an insert reuses an id.
const ErrDuplicateKey = "duplicate key"

// collection holds one index. Stored documents are replaced, never mutated
// in place, so readers may keep references after releasing the lock.
type collection struct {
	mu    sync.RWMutex
	docs  map[string]map[string]any
	order []string
}

// Store is an in-process document store. Each index is guarded by its own
// lock, so single document writes are atomic.
type Store struct {
	indexes    *xsync.MapOf[string, *collection]
	softDelete string
	newID      func() string
	logger     *slog.Logger
}

var _ query.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithSoftDelete makes Delete flag documents by setting field to true
// instead of removing them.
func WithSoftDelete(field string) Option {
	return func(s *Store) { s.softDelete = field }
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the logger used for write tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		indexes: xsync.NewMapOf[string, *collection](),
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Builder implements query.Store.
func (s *Store) Builder() query.Builder {
	return &builder{store: s}
}

// Seed stores docs in index as is, replacing documents with the same id.
// Documents without an id get a generated one.
func (s *Store) Seed(index string, docs ...map[string]any) {
	c := s.collection(index)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		doc = copyDoc(doc)
		id, _ := doc["id"].(string)
		if id == "" {
			id = s.newID()
			doc["id"] = id
		}
		c.put(id, doc)
	}
}

// Len returns the number of documents stored in index.
func (s *Store) Len(index string) int {
	c, ok := s.indexes.Load(index)
	if !ok {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Indexes returns the names of the indexes created so far.
func (s *Store) Indexes() []string {
	var out []string
	s.indexes.Range(func(name string, _ *collection) bool {
		out = append(out, name)
		return true
	})
	return out
}

func (s *Store) collection(index string) *collection {
	c, _ := s.indexes.LoadOrCompute(index, func() *collection {
		return &collection{docs: make(map[string]map[string]any)}
	})
	return c
}

func (c *collection) put(id string, doc map[string]any) {
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = doc
}

func (c *collection) remove(id string) {
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// snapshot returns copies of the stored documents in insertion order.
func (c *collection) snapshot() []map[string]any {
	out := make([]map[string]any, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.docs[id])
	}
	return out
}

func copyDoc(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = copyDoc(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && !rv.IsNil() {
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	}
	return v
}
