package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

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
	if err := b.Validate(); err != nil {
		return query.Result{}, err
	}
	doc := make(map[string]any, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	id, _ := doc["id"].(string)
	if id == "" {
		id = b.store.newID()
	}
	delete(doc, "id")

	body, err := encode(doc)
	if err != nil {
		return query.Result{Status: query.StatusError, Error: err.Error()}, nil
	}

	now := time.Now().UTC()
	row := &document{IndexName: b.Index, ID: id, Body: body, CreatedAt: now, UpdatedAt: now}
	if _, err := b.store.docs.Create(ctx, row); err != nil {
		err = b.store.mapError(err, "insert", b.Index)
		if repository.IsDuplicatedKey(err) {
			b.store.logger.DebugContext(ctx, "sql insert", "index", b.Index, "id", id, "status", query.StatusError)
			return query.Result{Status: query.StatusError, Error: ErrDuplicateKey}, nil
		}
		return query.Result{}, err
	}
	stored, err := row.decode()
	if err != nil {
		return query.Result{}, b.store.mapError(err, "insert", b.Index)
	}
	b.store.logger.DebugContext(ctx, "sql insert", "index", b.Index, "id", id, "status", query.StatusCreated)
	return query.Result{Status: query.StatusCreated, Data: stored, Affected: 1}, nil
}

func (b *builder) Update(ctx context.Context, id string, data map[string]any) (query.Result, error) {
	if err := b.Validate(); err != nil {
		return query.Result{}, err
	}

	var res query.Result
	err := b.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, current, err := b.load(ctx, tx, id)
		if err != nil || row == nil {
			res = query.Result{Status: query.StatusNotFound}
			return err
		}

		delete(current, "id")
		before, err := encode(current)
		if err != nil {
			return err
		}
		for k, v := range data {
			if k != "id" {
				current[k] = v
			}
		}
		after, err := encode(current)
		if err != nil {
			return err
		}
		if after == before {
			stored, err := row.decode()
			res = query.Result{Status: query.StatusNoop, Data: stored}
			return err
		}

		row.Body = after
		row.UpdatedAt = time.Now().UTC()
		if _, err := b.store.docs.UpdateTx(ctx, tx, row); err != nil {
			return err
		}
		stored, err := row.decode()
		res = query.Result{Status: query.StatusUpdated, Data: stored, Affected: 1}
		return err
	})
	if err != nil {
		return query.Result{}, b.store.mapError(err, "update", b.Index)
	}
	b.store.logger.DebugContext(ctx, "sql update", "index", b.Index, "id", id, "status", res.Status)
	return res, nil
}

func (b *builder) Delete(ctx context.Context, id string) (query.Result, error) {
	if err := b.Validate(); err != nil {
		return query.Result{}, err
	}

	var res query.Result
	err := b.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, current, err := b.load(ctx, tx, id)
		if err != nil || row == nil {
			res = query.Result{Status: query.StatusNotFound}
			return err
		}

		field := b.store.softDelete
		if field == "" {
			if err := b.store.docs.DeleteTx(ctx, tx, row); err != nil {
				return err
			}
			res = query.Result{Status: query.StatusDeleted, Affected: 1}
			return nil
		}

		if flagged, _ := current[field].(bool); flagged {
			res = query.Result{Status: query.StatusNoop}
			return nil
		}
		delete(current, "id")
		current[field] = true
		body, err := encode(current)
		if err != nil {
			return err
		}
		row.Body = body
		row.UpdatedAt = time.Now().UTC()
		if _, err := b.store.docs.UpdateTx(ctx, tx, row); err != nil {
			return err
		}
		stored, err := row.decode()
		res = query.Result{Status: query.StatusUpdated, Data: stored, Affected: 1}
		return err
	})
	if err != nil {
		return query.Result{}, b.store.mapError(err, "delete", b.Index)
	}
	b.store.logger.DebugContext(ctx, "sql delete", "index", b.Index, "id", id, "status", res.Status)
	return res, nil
}

func (b *builder) Count(ctx context.Context) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	n, err := b.store.docs.Count(ctx, b.store.criteria(&b.Request)...)
	if err != nil {
		return 0, b.store.mapError(err, "count", b.Index)
	}
	return n, nil
}

func (b *builder) Execute(ctx context.Context) (query.Result, error) {
	if err := b.Validate(); err != nil {
		return query.Result{}, err
	}

	var rows []document
	q := b.store.db.NewSelect().Model(&rows)
	q = apply(q, b.store.criteria(&b.Request))
	q = apply(q, []repository.SelectCriteria{b.store.ordering(&b.Request), b.store.window(&b.Request)})
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return query.Result{}, b.store.mapError(err, "select", b.Index)
	}

	out := make([]map[string]any, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].decode()
		if err != nil {
			return query.Result{}, b.store.mapError(err, "decode", b.Index)
		}
		out = append(out, b.Project(doc))
	}
	return query.Result{Status: query.StatusOK, Rows: out, Affected: len(out)}, nil
}

// load reads one document inside tx. A missing document yields nil values.
func (b *builder) load(ctx context.Context, tx bun.Tx, id string) (*document, map[string]any, error) {
	row, err := b.store.docs.GetTx(ctx, tx, selectDocument(b.Index, id)...)
	if repository.IsRecordNotFound(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	doc, err := row.decode()
	if err != nil {
		return nil, nil, err
	}
	return row, doc, nil
}

func apply(q *bun.SelectQuery, criteria []repository.SelectCriteria) *bun.SelectQuery {
	for _, c := range criteria {
		if c != nil {
			q = c(q)
		}
	}
	return q
}
