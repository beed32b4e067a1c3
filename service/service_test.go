package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/goliatone/go-entity-repository/cache"
	"github.com/goliatone/go-entity-repository/entity"
	"github.com/goliatone/go-entity-repository/query"
	"github.com/goliatone/go-entity-repository/repository"
	"github.com/goliatone/go-entity-repository/service"
	"github.com/goliatone/go-entity-repository/storage/memory"
)

type Book struct {
	entity.Base
	Title string `json:"title"`
	Year  int    `json:"year"`
}

type countingStore struct {
	*memory.Store
	builders atomic.Int32
}

func (c *countingStore) Builder() query.Builder {
	c.builders.Add(1)
	return c.Store.Builder()
}

func newService(t *testing.T, opts ...service.Option) (*service.Service[*Book], *countingStore) {
	t.Helper()
	store := &countingStore{Store: memory.New(memory.WithSoftDelete(repository.DefaultSoftDeleteField))}
	store.Seed("books",
		map[string]any{"id": "b1", "title": "Dune", "year": 1965},
		map[string]any{"id": "b2", "title": "Emma", "year": 1815},
	)
	c, err := cache.NewCacheService(cache.DefaultConfig(), nil)
	require.NoError(t, err)
	opts = append([]service.Option{service.WithCache(c)}, opts...)
	return service.New(repository.New[*Book](store), opts...), store
}

func TestFind_ServesCopiesFromCache(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	first, err := svc.Find(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "Dune", first.Title)
	assert.Equal(t, entity.Update, first.EntityState())
	first.Title = "changed"

	second, err := svc.Find(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", second.Title)
	assert.Equal(t, "b1", second.GetID())
	assert.Equal(t, int32(1), store.builders.Load())
}

func TestFind_MissIsCachedUntilCreate(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	missing, err := svc.Find(ctx, "b9")
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = svc.Find(ctx, "b9")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, int32(1), store.builders.Load())

	_, err = svc.Create(ctx, &Book{Base: entity.Base{ID: "b9"}, Title: "Ubik", Year: 1969})
	require.NoError(t, err)

	found, err := svc.Find(ctx, "b9")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Ubik", found.Title)
}

func TestFindOrFail(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.FindOrFail(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	rec, err := svc.FindOrFail(context.Background(), "b2")
	require.NoError(t, err)
	assert.Equal(t, "Emma", rec.Title)
}

func TestUpdate_InvalidatesReads(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	byTitle := query.NewParams("title", "Dune")

	found, err := svc.Search(ctx, byTitle)
	require.NoError(t, err)
	require.Len(t, found, 1)

	rec, err := svc.Find(ctx, "b1")
	require.NoError(t, err)
	rec.Title = "Dune Messiah"
	_, err = svc.Update(ctx, rec)
	require.NoError(t, err)

	found, err = svc.Search(ctx, byTitle)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.NotNil(t, found)

	rec, err = svc.Find(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", rec.Title)
}

func TestDelete_InvalidatesExists(t *testing.T) {
	store := memory.New()
	store.Seed("books", map[string]any{"id": "b2", "title": "Emma"})
	c, err := cache.NewCacheService(cache.DefaultConfig(), nil)
	require.NoError(t, err)
	svc := service.New(repository.New[*Book](store), service.WithCache(c))
	ctx := context.Background()

	ok, err := svc.Exists(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := svc.Delete(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, deleted)

	ok, err = svc.Exists(ctx, "b2")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err := svc.Find(ctx, "b2")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDelete_SoftDeleteHidesFromFind(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.Find(ctx, "b2")
	require.NoError(t, err)
	require.NotNil(t, rec)

	deleted, err := svc.Delete(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, deleted)

	rec, err = svc.Find(ctx, "b2")
	require.NoError(t, err)
	assert.Nil(t, rec)

	ok, err := svc.Exists(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, ok, "soft deleted documents are still stored")
}

func TestPaginate_Cached(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	page, err := svc.Paginate(ctx, query.NewParams("_sort", "year"), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Emma", page.Data[0]["title"])
	calls := store.builders.Load()

	again, err := svc.Paginate(ctx, query.NewParams("_sort", "year"), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, calls, store.builders.Load())
	assert.Equal(t, "Emma", again.Data[0]["title"])
	assert.EqualValues(t, 1815, again.Data[0]["year"])
}

func TestCacheTags(t *testing.T) {
	svc, store := newService(t)
	ctx := service.WithCacheTags(context.Background(), "shelf")

	_, err := svc.Find(ctx, "b1")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidator().InvalidateTags(context.Background(), "shelf"))

	_, err = svc.Find(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.builders.Load())
}

func TestFlush(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.First(ctx, query.NewParams("title", "Emma"))
	require.NoError(t, err)
	require.NoError(t, svc.Flush(ctx))
	_, err = svc.First(ctx, query.NewParams("title", "Emma"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.builders.Load())
}

func TestWithoutCache(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	store.Seed("books", map[string]any{"id": "b1", "title": "Dune"})
	svc := service.New(repository.New[*Book](store))

	for range 2 {
		rec, err := svc.Find(context.Background(), "b1")
		require.NoError(t, err)
		assert.Equal(t, "Dune", rec.Title)
	}
	assert.Equal(t, int32(2), store.builders.Load())
	assert.Nil(t, svc.Invalidator())
	assert.NoError(t, svc.Flush(context.Background()))
}

func TestEvents(t *testing.T) {
	d := service.NewDispatcher()
	var seen []service.Event
	d.Subscribe(service.ListenerFunc(func(_ context.Context, e service.Event) error {
		seen = append(seen, e)
		return nil
	}))
	d.Subscribe(service.ListenerFunc(func(context.Context, service.Event) error {
		return errors.New("listener down")
	}), service.EventDeleted)

	svc, _ := newService(t, service.WithDispatcher(d))
	ctx := context.Background()

	created, err := svc.Create(ctx, &Book{Title: "Solaris", Year: 1961})
	require.NoError(t, err)
	_, err = svc.Update(ctx, created)
	require.NoError(t, err)
	deleted, err := svc.Delete(ctx, created.GetID())
	require.NoError(t, err, "listener failures do not fail the write")
	assert.True(t, deleted)

	require.Len(t, seen, 3)
	assert.Equal(t, service.EventCreated, seen[0].Type)
	assert.Equal(t, "books", seen[0].Index)
	assert.Equal(t, created.GetID(), seen[0].ID)
	assert.Equal(t, service.EventUpdated, seen[1].Type)
	assert.Equal(t, service.EventDeleted, seen[2].Type)
	assert.Nil(t, seen[2].Record)
}

func TestDispatcher_AggregatesErrors(t *testing.T) {
	d := service.NewDispatcher()
	calls := 0
	fail := service.ListenerFunc(func(context.Context, service.Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(fail)
	d.Subscribe(fail, service.EventCreated)
	d.Subscribe(fail, service.EventUpdated)

	err := d.Dispatch(context.Background(), service.Event{Type: service.EventCreated, Index: "books"})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 2, calls)
}

type failingCache struct{ cache.CacheService }

func (failingCache) Delete(context.Context, string) error { return errors.New("cache offline") }

func TestInvalidator_CollectsDeleteErrors(t *testing.T) {
	c, err := cache.NewCacheService(cache.DefaultConfig(), nil)
	require.NoError(t, err)
	inv := service.NewInvalidator(failingCache{c}, nil, nil)
	ctx := context.Background()

	inv.Track(ctx, cache.ParamsKey("books", "search", query.NewParams("a", "1")))
	inv.Track(ctx, cache.ParamsKey("books", "paginate", query.NewParams(), 1, 10))
	inv.Track(ctx, cache.ParamsKey("authors", "search", query.NewParams()))

	err = inv.Handle(ctx, service.Event{Type: service.EventCreated, Index: "books"})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.True(t, inv.Tracked(cache.ParamsKey("authors", "search", query.NewParams())))
	assert.False(t, inv.Tracked(cache.ParamsKey("books", "search", query.NewParams("a", "1"))))
}

type Account struct {
	entity.Base
	Email    string `json:"email"`
	Password string `json:"password"`
}

func newAccount(data map[string]any) (*Account, error) {
	a := &Account{}
	a.Hide("password")
	if err := entity.Hydrate(a, data); err != nil {
		return nil, err
	}
	return a, nil
}

func TestCachedReads_RunRegisteredConstructor(t *testing.T) {
	store := memory.New()
	store.Seed("accounts",
		map[string]any{"id": "a1", "email": "ada@example.com", "password": "secret"},
	)
	factory := entity.NewFactory()
	require.NoError(t, factory.Register(newAccount))
	repo := repository.New[*Account](store, repository.WithFactory(factory), repository.WithIndex("accounts"))

	c, err := cache.NewCacheService(cache.DefaultConfig(), nil)
	require.NoError(t, err)
	cached := service.New(repo, service.WithCache(c))
	plain := service.New(repo)
	ctx := context.Background()

	want, err := plain.Find(ctx, "a1")
	require.NoError(t, err)
	require.NotContains(t, entity.ToMap(want), "password")

	for i := 0; i < 2; i++ {
		got, err := cached.Find(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, entity.ToMap(want), entity.ToMap(got))
		assert.True(t, got.IsHidden("password"))
		assert.Equal(t, "secret", got.Password)
	}

	params := query.NewParams("email", "ada@example.com")
	first, err := cached.First(ctx, params)
	require.NoError(t, err)
	assert.NotContains(t, entity.ToMap(first), "password")

	for i := 0; i < 2; i++ {
		found, err := cached.Search(ctx, params)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.True(t, found[0].IsHidden("password"))
		assert.Equal(t, entity.ToMap(want), entity.ToMap(found[0]))
	}
}

func TestNew_SharedInvalidatorAttachesOnce(t *testing.T) {
	store := memory.New()
	c, err := cache.NewCacheService(cache.DefaultConfig(), nil)
	require.NoError(t, err)
	d := service.NewDispatcher()
	inv := service.NewInvalidator(c, nil, nil)
	opts := []service.Option{service.WithCache(c), service.WithDispatcher(d), service.WithInvalidator(inv)}

	books := service.New(repository.New[*Book](store), opts...)
	_ = service.New(repository.New[*Book](store), opts...)
	_ = service.New(repository.New[*Account](store), opts...)
	assert.Equal(t, 1, d.Len())
	assert.False(t, inv.Attach(d))

	ctx := context.Background()
	_, err = books.Create(ctx, &Book{Title: "Dune"})
	require.NoError(t, err)
	_, err = books.Search(ctx, nil)
	require.NoError(t, err)
	require.True(t, inv.Tracked(cache.ParamsKey("books", "search", nil)))

	_, err = books.Create(ctx, &Book{Title: "Emma"})
	require.NoError(t, err)
	found, err := books.Search(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, found, 2, "the single subscription still invalidates")
}
