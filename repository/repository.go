package repository

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/goliatone/go-entity-repository/entity"
	"github.com/goliatone/go-entity-repository/query"
	"github.com/goliatone/go-entity-repository/validator"
)

// Default pagination values.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// Page is one page of serialized records.
type Page struct {
	Data        []map[string]any `json:"data"`
	CurrentPage int              `json:"current_page"`
	PerPage     int              `json:"per_page"`
	Total       int              `json:"total"`
}

// Repository provides CRUD and query operations for records of type T
// stored in one index. T is normally a pointer to a struct embedding
// entity.Base.
type Repository[T entity.Record] struct {
	store      query.Store
	factory    entity.Factory
	hydrator   *entity.Hydrator
	registry   *entity.Registry
	index      string
	softDelete string
	logger     *slog.Logger
}

var _ validator.UniqueLookup = (*Repository[*entity.Base])(nil)

// New builds a repository over store. Without options it uses a fresh
// entity.DefaultFactory, no external validators, the soft delete field
// "deleted" and an index derived from T.
func New[T entity.Record](store query.Store, opts ...Option) *Repository[T] {
	o := options{
		softDelete: DefaultSoftDeleteField,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.factory == nil {
		if o.hydrator != nil {
			o.factory = o.hydrator.Factory()
		}
		if o.factory == nil {
			o.factory = entity.NewFactory()
		}
	}
	if o.hydrator == nil {
		if df, ok := o.factory.(*entity.DefaultFactory); ok {
			o.hydrator = df.Hydrator()
		} else {
			o.hydrator = entity.NewHydrator(entity.WithFactory(o.factory))
		}
	}
	if o.index == "" {
		o.index = indexFor[T]()
	}

	return &Repository[T]{
		store:      store,
		factory:    o.factory,
		hydrator:   o.hydrator,
		registry:   o.registry,
		index:      o.index,
		softDelete: o.softDelete,
		logger:     o.logger,
	}
}

// Index returns the index every operation targets.
func (r *Repository[T]) Index() string { return r.index }

// Hydrator returns the hydrator used to serialize records.
func (r *Repository[T]) Hydrator() *entity.Hydrator { return r.hydrator }

// Find returns the record with the given id, skipping soft deleted
// documents. A missing record yields the zero T and a nil error.
func (r *Repository[T]) Find(ctx context.Context, id string) (T, error) {
	var zero T
	row, err := r.FindRow(ctx, id)
	if err != nil || row == nil {
		return zero, err
	}
	return r.build(row)
}

// FindRow returns the stored document behind Find, nil when there is none.
func (r *Repository[T]) FindRow(ctx context.Context, id string) (map[string]any, error) {
	b := r.store.Builder().Select("*").From(r.index).Where("id", "=", id)
	if r.softDelete != "" {
		b.Where(r.softDelete, "=", true, query.MustNot)
	}
	b.Limit(1)

	res, err := b.Execute(ctx)
	if err != nil {
		return nil, storeFailed(err, "find", r.index)
	}
	r.logger.DebugContext(ctx, "repository find", "index", r.index, "id", id, "status", res.Status, "rows", len(res.Rows))
	if !res.OK(query.StatusOK) || len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

// First returns the first record matching params, or the zero T.
func (r *Repository[T]) First(ctx context.Context, params *query.Params) (T, error) {
	var zero T
	row, err := r.FirstRow(ctx, params)
	if err != nil || row == nil {
		return zero, err
	}
	return r.build(row)
}

// FirstRow returns the stored document behind First, nil when nothing matches.
func (r *Repository[T]) FirstRow(ctx context.Context, params *query.Params) (map[string]any, error) {
	b := query.Parse(params, r.store.Builder().From(r.index))
	b.Limit(1)

	res, err := b.Execute(ctx)
	if err != nil {
		return nil, storeFailed(err, "first", r.index)
	}
	r.logger.DebugContext(ctx, "repository first", "index", r.index, "status", res.Status, "rows", len(res.Rows))
	if !res.OK(query.StatusOK) || len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

// Search returns every record matching params. No match yields an empty,
// non nil slice.
func (r *Repository[T]) Search(ctx context.Context, params *query.Params) ([]T, error) {
	rows, err := r.SearchRows(ctx, params)
	if err != nil {
		return nil, err
	}
	return r.BuildAll(rows)
}

// SearchRows returns the stored documents behind Search.
func (r *Repository[T]) SearchRows(ctx context.Context, params *query.Params) ([]map[string]any, error) {
	b := query.Parse(params, r.store.Builder().From(r.index))

	res, err := b.Execute(ctx)
	if err != nil {
		return nil, storeFailed(err, "search", r.index)
	}
	r.logger.DebugContext(ctx, "repository search", "index", r.index, "status", res.Status, "rows", len(res.Rows))
	if !res.OK(query.StatusOK) {
		return []map[string]any{}, nil
	}
	return res.Rows, nil
}

// Paginate returns one page of serialized records matching params. The
// _page and _per_page parameters override page and perPage. The total comes
// from a separate count query built from the same params.
func (r *Repository[T]) Paginate(ctx context.Context, params *query.Params, page, perPage int) (Page, error) {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	page, perPage = query.PageParams(params, page, perPage)

	b := query.Parse(params, r.store.Builder().From(r.index))
	b.Offset((page - 1) * perPage).Limit(perPage)

	res, err := b.Execute(ctx)
	if err != nil {
		return Page{}, storeFailed(err, "paginate", r.index)
	}

	data := make([]map[string]any, 0, len(res.Rows))
	if res.OK(query.StatusOK) {
		for _, row := range res.Rows {
			rec, err := r.build(row)
			if err != nil {
				return Page{}, err
			}
			data = append(data, r.hydrator.ToMap(rec))
		}
	}

	total, err := query.Parse(params, r.store.Builder().From(r.index)).Count(ctx)
	if err != nil {
		return Page{}, storeFailed(err, "count", r.index)
	}
	r.logger.DebugContext(ctx, "repository paginate", "index", r.index, "page", page, "per_page", perPage, "total", total)

	return Page{
		Data:        data,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
	}, nil
}

// Create validates rec and inserts it. The returned record is rebuilt from
// the stored document.
func (r *Repository[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	if isNil(rec) {
		return zero, entity.NewInvalidEntity("cannot create a nil record")
	}
	rec.SetEntityState(entity.Create)
	if !entity.Validate(ctx, rec, r.registry) {
		return zero, NewValidationFailed(rec.Errors())
	}

	data := r.hydrator.ToMap(rec)
	res, err := r.store.Builder().Into(r.index).Insert(ctx, data)
	if err != nil {
		return zero, storeFailed(err, "insert", r.index)
	}
	r.logger.DebugContext(ctx, "repository create", "index", r.index, "status", res.Status)
	if !res.OK(query.StatusCreated) {
		return zero, NewCreateFailed(res.Error)
	}

	payload := res.Data
	if len(payload) == 0 {
		payload = data
	}
	return r.build(payload)
}

// Update validates rec and writes it under its identifier. An update that
// changes nothing is not an error.
func (r *Repository[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T
	if isNil(rec) {
		return zero, entity.NewInvalidEntity("cannot update a nil record")
	}
	rec.SetEntityState(entity.Update)
	if !entity.Validate(ctx, rec, r.registry) {
		return zero, NewValidationFailed(rec.Errors())
	}

	data := r.hydrator.ToMap(rec)
	delete(data, "id")
	res, err := r.store.Builder().Into(r.index).Update(ctx, rec.GetID(), data)
	if err != nil {
		return zero, storeFailed(err, "update", r.index)
	}
	r.logger.DebugContext(ctx, "repository update", "index", r.index, "id", rec.GetID(), "status", res.Status)
	if !res.OK(query.StatusUpdated, query.StatusNoop) {
		return zero, NewUpdateFailed(res.Error)
	}
	if len(res.Data) == 0 {
		return rec, nil
	}

	return r.build(res.Data)
}

// Delete removes the record with the given id. Soft deletes surface as
// updated or noop results and count as success.
func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.store.Builder().From(r.index).Delete(ctx, id)
	if err != nil {
		return false, storeFailed(err, "delete", r.index)
	}
	r.logger.DebugContext(ctx, "repository delete", "index", r.index, "id", id, "status", res.Status)
	return res.OK(query.StatusDeleted, query.StatusUpdated, query.StatusNoop), nil
}

// Exists reports whether a document with the given id is stored.
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.store.Builder().From(r.index).Where("id", "=", id).Count(ctx)
	if err != nil {
		return false, storeFailed(err, "count", r.index)
	}
	return n > 0, nil
}

// ExistsWhere implements validator.UniqueLookup. Soft deleted documents and
// the document identified by excludeID are ignored.
func (r *Repository[T]) ExistsWhere(ctx context.Context, field string, value any, excludeID string) (bool, error) {
	b := r.store.Builder().From(r.index).Where(field, "=", value)
	if excludeID != "" {
		b.Where("id", "=", excludeID, query.MustNot)
	}
	if r.softDelete != "" {
		b.Where(r.softDelete, "=", true, query.MustNot)
	}
	n, err := b.Count(ctx)
	if err != nil {
		return false, storeFailed(err, "count", r.index)
	}
	return n > 0, nil
}

// Build turns a stored document into a T through the factory, so
// registered constructors run for every record read. Built records are in
// the update state.
func (r *Repository[T]) Build(row map[string]any) (T, error) {
	return r.build(row)
}

// BuildAll builds every row. The result is never nil.
func (r *Repository[T]) BuildAll(rows []map[string]any) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := r.build(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Repository[T]) build(data map[string]any) (T, error) {
	rec, err := entity.New[T](r.factory, data)
	if err != nil || isNil(rec) {
		return rec, err
	}
	rec.SetEntityState(entity.Update)
	return rec, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
