package service

import (
	"context"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-entity-repository/cache"
	"github.com/goliatone/go-entity-repository/entity"
	"github.com/goliatone/go-entity-repository/query"
	"github.com/goliatone/go-entity-repository/repository"
)

type options struct {
	cache       cache.CacheService
	keyer       cache.KeySerializer
	dispatcher  *Dispatcher
	invalidator *Invalidator
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*options)

// WithCache enables read-through caching.
func WithCache(c cache.CacheService) Option {
	return func(o *options) { o.cache = c }
}

// WithKeySerializer sets the serializer for id keyed cache entries.
func WithKeySerializer(k cache.KeySerializer) Option {
	return func(o *options) { o.keyer = k }
}

// WithDispatcher shares a dispatcher between services.
func WithDispatcher(d *Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// WithInvalidator shares an invalidator between services. It must wrap the
// same cache passed to WithCache.
func WithInvalidator(i *Invalidator) Option {
	return func(o *options) { o.invalidator = i }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Service fronts a repository with an optional cache and publishes an event
// after every successful write. The cache holds stored documents, and every
// cached read rebuilds fresh records from them through the repository
// factory.
type Service[T entity.Record] struct {
	repo        *repository.Repository[T]
	cache       cache.CacheService
	invalidator *Invalidator
	dispatcher  *Dispatcher
	logger      *slog.Logger
}

// New wraps repo. When a cache is configured, the invalidator is attached
// to the dispatcher once, however many services share them.
func New[T entity.Record](repo *repository.Repository[T], opts ...Option) *Service[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dispatcher == nil {
		o.dispatcher = NewDispatcher()
	}

	s := &Service[T]{
		repo:       repo,
		cache:      o.cache,
		dispatcher: o.dispatcher,
		logger:     o.logger,
	}
	if o.cache != nil {
		s.invalidator = o.invalidator
		if s.invalidator == nil {
			s.invalidator = NewInvalidator(o.cache, o.keyer, o.logger)
		}
		s.invalidator.Attach(o.dispatcher)
	}
	return s
}

// Repository returns the wrapped repository.
func (s *Service[T]) Repository() *repository.Repository[T] { return s.repo }

// Dispatcher returns the dispatcher events are published on.
func (s *Service[T]) Dispatcher() *Dispatcher { return s.dispatcher }

// Invalidator returns the cache invalidator, nil without a cache.
func (s *Service[T]) Invalidator() *Invalidator { return s.invalidator }

// Find returns the record with id, or the zero T when there is none. Misses
// are cached too.
func (s *Service[T]) Find(ctx context.Context, id string) (T, error) {
	if s.cache == nil {
		return s.repo.Find(ctx, id)
	}
	return s.cachedRow(ctx, s.invalidator.idKey(s.repo.Index(), opFind, id), func(ctx context.Context) (map[string]any, error) {
		return s.repo.FindRow(ctx, id)
	})
}

// FindOrFail is Find with a RECORD_NOT_FOUND error for a missing record.
func (s *Service[T]) FindOrFail(ctx context.Context, id string) (T, error) {
	rec, err := s.Find(ctx, id)
	if err != nil {
		return rec, err
	}
	return repository.RequireFound(rec, s.repo.Index(), id)
}

// First returns the first record matching params.
func (s *Service[T]) First(ctx context.Context, params *query.Params) (T, error) {
	if s.cache == nil {
		return s.repo.First(ctx, params)
	}
	return s.cachedRow(ctx, cache.ParamsKey(s.repo.Index(), opFirst, params), func(ctx context.Context) (map[string]any, error) {
		return s.repo.FirstRow(ctx, params)
	})
}

// Search returns every record matching params.
func (s *Service[T]) Search(ctx context.Context, params *query.Params) ([]T, error) {
	if s.cache == nil {
		return s.repo.Search(ctx, params)
	}
	key := cache.ParamsKey(s.repo.Index(), opSearch, params)
	data, err := s.fetch(ctx, key, func(ctx context.Context) (any, error) {
		return s.repo.SearchRows(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	rows, err := cache.Restore[[]map[string]any](data)
	if err != nil {
		return nil, restoreFailed(err, key)
	}
	return s.repo.BuildAll(rows)
}

// Paginate returns one page of serialized records.
func (s *Service[T]) Paginate(ctx context.Context, params *query.Params, page, perPage int) (repository.Page, error) {
	if s.cache == nil {
		return s.repo.Paginate(ctx, params, page, perPage)
	}
	key := cache.ParamsKey(s.repo.Index(), opPaginate, params, page, perPage)
	data, err := s.fetch(ctx, key, func(ctx context.Context) (any, error) {
		return s.repo.Paginate(ctx, params, page, perPage)
	})
	if err != nil {
		return repository.Page{}, err
	}
	out, err := cache.Restore[repository.Page](data)
	if err != nil {
		return repository.Page{}, restoreFailed(err, key)
	}
	if out.Data == nil {
		out.Data = []map[string]any{}
	}
	return out, nil
}

// Exists reports whether a live record with id exists.
func (s *Service[T]) Exists(ctx context.Context, id string) (bool, error) {
	if s.cache == nil {
		return s.repo.Exists(ctx, id)
	}
	key := s.invalidator.idKey(s.repo.Index(), opExists, id)
	s.invalidator.Track(ctx, key)
	return cache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (bool, error) {
		return s.repo.Exists(ctx, id)
	})
}

// ExistsWhere reads through to the repository, since uniqueness checks
// must see the current state.
func (s *Service[T]) ExistsWhere(ctx context.Context, field string, value any, excludeID string) (bool, error) {
	return s.repo.ExistsWhere(ctx, field, value, excludeID)
}

// Create stores rec and publishes EventCreated.
func (s *Service[T]) Create(ctx context.Context, rec T) (T, error) {
	out, err := s.repo.Create(ctx, rec)
	if err != nil {
		return out, err
	}
	s.publish(ctx, EventCreated, out.GetID(), out)
	return out, nil
}

// Update stores rec and publishes EventUpdated.
func (s *Service[T]) Update(ctx context.Context, rec T) (T, error) {
	out, err := s.repo.Update(ctx, rec)
	if err != nil {
		return out, err
	}
	s.publish(ctx, EventUpdated, out.GetID(), out)
	return out, nil
}

// Delete removes the record with id and publishes EventDeleted when the
// store acknowledged it.
func (s *Service[T]) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.publish(ctx, EventDeleted, id, nil)
	return true, nil
}

// Flush drops every cached read of the index.
func (s *Service[T]) Flush(ctx context.Context) error {
	if s.invalidator == nil {
		return nil
	}
	return s.invalidator.InvalidateIndex(ctx, s.repo.Index())
}

// publish never fails the write; listener errors are logged.
func (s *Service[T]) publish(ctx context.Context, typ EventType, id string, rec any) {
	event := Event{Type: typ, Index: s.repo.Index(), ID: id, Record: rec}
	logDispatch(ctx, s.logger, event, s.dispatcher.Dispatch(ctx, event))
}

// fetch caches the msgpack snapshot of the value load returns.
func (s *Service[T]) fetch(ctx context.Context, key string, load func(context.Context) (any, error)) ([]byte, error) {
	s.invalidator.Track(ctx, key)
	return cache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return cache.Snapshot(v)
	})
}

// cachedRow reads one stored document through the cache and builds it. A
// cached miss yields the zero T.
func (s *Service[T]) cachedRow(ctx context.Context, key string, load func(context.Context) (map[string]any, error)) (T, error) {
	var zero T
	data, err := s.fetch(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	row, err := cache.Restore[map[string]any](data)
	if err != nil {
		return zero, restoreFailed(err, key)
	}
	if row == nil {
		return zero, nil
	}
	return s.repo.Build(row)
}

func restoreFailed(err error, key string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "restore cached value").
		WithMetadata(map[string]any{"key": key})
}
