package memory

import (
	"context"
	"reflect"
	"sort"

	"github.com/goliatone/go-entity-repository/query"
)

type builder struct {
	query.Request
	store *Store
}

var _ query.Builder = (*builder)(nil)

func (b *builder) Select(fields ...string) query.Builder {
	b.SetFields(fields...)
	return b
}

func (b *builder) From(index string) query.Builder {
	b.Index = index
	return b
}

func (b *builder) Into(index string) query.Builder {
	b.Index = index
	return b
}

func (b *builder) Where(field, operator string, value any, occur ...query.Occur) query.Builder {
	b.AddCondition(field, operator, value, occur...)
	return b
}

func (b *builder) OrderBy(field, direction string) query.Builder {
	b.AddSort(field, direction)
	return b
}

func (b *builder) Limit(n int) query.Builder {
	b.Request.Limit = n
	return b
}

func (b *builder) Offset(n int) query.Builder {
	b.Request.Offset = n
	return b
}

func (b *builder) Insert(ctx context.Context, data map[string]any) (query.Result, error) {
	if err := b.check(ctx); err != nil {
		return query.Result{}, err
	}
	doc := copyDoc(data)
	id, _ := doc["id"].(string)
	if id == "" {
		id = b.store.newID()
		doc["id"] = id
	}

	c := b.store.collection(b.Index)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.docs[id]; exists {
		return query.Result{Status: query.StatusError, Error: ErrDuplicateKey}, nil
	}
	c.put(id, doc)
	b.store.logger.DebugContext(ctx, "memory insert", "index", b.Index, "id", id)
	return query.Result{Status: query.StatusCreated, Data: copyDoc(doc), Affected: 1}, nil
}

func (b *builder) Update(ctx context.Context, id string, data map[string]any) (query.Result, error) {
	if err := b.check(ctx); err != nil {
		return query.Result{}, err
	}
	c := b.store.collection(b.Index)
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.docs[id]
	if !ok {
		return query.Result{Status: query.StatusNotFound}, nil
	}
	merged := copyDoc(current)
	for k, v := range data {
		if k == "id" {
			continue
		}
		merged[k] = copyValue(v)
	}
	if reflect.DeepEqual(merged, current) {
		return query.Result{Status: query.StatusNoop, Data: copyDoc(current)}, nil
	}
	c.put(id, merged)
	b.store.logger.DebugContext(ctx, "memory update", "index", b.Index, "id", id)
	return query.Result{Status: query.StatusUpdated, Data: copyDoc(merged), Affected: 1}, nil
}

func (b *builder) Delete(ctx context.Context, id string) (query.Result, error) {
	if err := b.check(ctx); err != nil {
		return query.Result{}, err
	}
	c := b.store.collection(b.Index)
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.docs[id]
	if !ok {
		return query.Result{Status: query.StatusNotFound}, nil
	}

	if field := b.store.softDelete; field != "" {
		if flagged, _ := current[field].(bool); flagged {
			return query.Result{Status: query.StatusNoop}, nil
		}
		doc := copyDoc(current)
		doc[field] = true
		c.put(id, doc)
		b.store.logger.DebugContext(ctx, "memory soft delete", "index", b.Index, "id", id)
		return query.Result{Status: query.StatusUpdated, Data: copyDoc(doc), Affected: 1}, nil
	}

	c.remove(id)
	b.store.logger.DebugContext(ctx, "memory delete", "index", b.Index, "id", id)
	return query.Result{Status: query.StatusDeleted, Affected: 1}, nil
}

func (b *builder) Count(ctx context.Context) (int, error) {
	if err := b.check(ctx); err != nil {
		return 0, err
	}
	n := 0
	b.scan(func(map[string]any) { n++ })
	return n, nil
}

func (b *builder) Execute(ctx context.Context) (query.Result, error) {
	if err := b.check(ctx); err != nil {
		return query.Result{}, err
	}
	var rows []map[string]any
	b.scan(func(doc map[string]any) { rows = append(rows, doc) })

	if len(b.Sorts) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, s := range b.Sorts {
				c := compareValues(lookup(rows[i], s.Field), lookup(rows[j], s.Field))
				if c == 0 {
					continue
				}
				if s.Direction == query.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	rows = window(rows, b.Request.Offset, b.Request.Limit)
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = b.Project(copyDoc(row))
	}
	return query.Result{Status: query.StatusOK, Rows: out, Affected: len(out)}, nil
}

func (b *builder) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Validate()
}

// scan calls fn for every matching document under the read lock.
func (b *builder) scan(fn func(map[string]any)) {
	c, ok := b.store.indexes.Load(b.Index)
	if !ok {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.snapshot() {
		if matches(doc, b.Conditions) {
			fn(doc)
		}
	}
}

func window(rows []map[string]any, offset, limit int) []map[string]any {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
