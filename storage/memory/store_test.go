package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-entity-repository/query"
)

func seeded(opts ...Option) *Store {
	s := New(opts...)
	s.Seed("books",
		map[string]any{"id": "b1", "title": "Dune", "year": 1965, "genre": "scifi", "author": map[string]any{"name": "Herbert"}},
		map[string]any{"id": "b2", "title": "Emma", "year": 1815, "genre": "classic"},
		map[string]any{"id": "b3", "title": "Neuromancer", "year": 1984, "genre": "scifi", "deleted": true},
		map[string]any{"id": "b4", "title": "Hyperion", "year": 1989, "genre": "scifi"},
	)
	return s
}

func ids(rows []map[string]any) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["id"].(string)
	}
	return out
}

func TestExecute_Conditions(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	tests := []struct {
		name  string
		build func(b query.Builder)
		want  []string
	}{
		{"all", func(query.Builder) {}, []string{"b1", "b2", "b3", "b4"}},
		{"equality from string", func(b query.Builder) { b.Where("year", "=", "1965") }, []string{"b1"}},
		{"must not missing flag", func(b query.Builder) { b.Where("deleted", "=", true, query.MustNot) }, []string{"b1", "b2", "b4"}},
		{"filter", func(b query.Builder) { b.Where("genre", "=", "scifi", query.Filter) }, []string{"b1", "b3", "b4"}},
		{"should", func(b query.Builder) {
			b.Where("title", "=", "Emma", query.Should).Where("title", "=", "Dune", query.Should)
		}, []string{"b1", "b2"}},
		{"range", func(b query.Builder) { b.Where("year", ">=", 1965).Where("year", "<", 1989) }, []string{"b1", "b3"}},
		{"not equal", func(b query.Builder) { b.Where("genre", "!=", "scifi") }, []string{"b2"}},
		{"like", func(b query.Builder) { b.Where("title", "like", "%ERION") }, []string{"b4"}},
		{"in", func(b query.Builder) { b.Where("id", "in", []string{"b2", "b4"}) }, []string{"b2", "b4"}},
		{"in from list", func(b query.Builder) { b.Where("id", "in", "b1, b3") }, []string{"b1", "b3"}},
		{"nested path", func(b query.Builder) { b.Where("author.name", "=", "Herbert") }, []string{"b1"}},
		{"alias operator", func(b query.Builder) { b.Where("genre", "eq", "classic") }, []string{"b2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := s.Builder().From("books")
			tt.build(b)
			res, err := b.Execute(ctx)
			require.NoError(t, err)
			assert.Equal(t, query.StatusOK, res.Status)
			assert.Equal(t, tt.want, ids(res.Rows))
		})
	}
}

func TestExecute_SortWindowProject(t *testing.T) {
	s := seeded()
	res, err := s.Builder().Select("title").From("books").
		OrderBy("year", "desc").Offset(1).Limit(2).
		Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"id": "b3", "title": "Neuromancer"},
		{"id": "b1", "title": "Dune"},
	}, res.Rows)

	res, err = s.Builder().From("books").OrderBy("genre", "asc").OrderBy("title", "desc").Offset(10).Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Rows)

	res, err = s.Builder().From("books").OrderBy("genre", "asc").OrderBy("title", "desc").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b3", "b4", "b1"}, ids(res.Rows))
}

func TestExecute_RowsAreCopies(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	res, err := s.Builder().From("books").Where("id", "=", "b1").Execute(ctx)
	require.NoError(t, err)
	res.Rows[0]["title"] = "changed"
	res.Rows[0]["author"].(map[string]any)["name"] = "changed"

	res, err = s.Builder().From("books").Where("id", "=", "b1").Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dune", res.Rows[0]["title"])
	assert.Equal(t, "Herbert", res.Rows[0]["author"].(map[string]any)["name"])
}

func TestExecute_UnknownIndexAndValidation(t *testing.T) {
	s := New()
	res, err := s.Builder().From("nothing").Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Rows)

	_, err = s.Builder().Execute(context.Background())
	assert.Error(t, err, "no index selected")

	_, err = s.Builder().From("books").Where("a", "~", 1).Count(context.Background())
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	s := seeded()
	n, err := s.Builder().From("books").Where("genre", "=", "scifi").Limit(1).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n, "count ignores the window")
}

func TestInsert(t *testing.T) {
	s := New(WithIDGenerator(func() string { return "generated" }))
	ctx := context.Background()

	res, err := s.Builder().Into("books").Insert(ctx, map[string]any{"title": "Dune"})
	require.NoError(t, err)
	assert.Equal(t, query.StatusCreated, res.Status)
	assert.Equal(t, map[string]any{"id": "generated", "title": "Dune"}, res.Data)

	res, err = s.Builder().Into("books").Insert(ctx, map[string]any{"id": "generated", "title": "Other"})
	require.NoError(t, err)
	assert.Equal(t, query.StatusError, res.Status)
	assert.Equal(t, ErrDuplicateKey, res.Error)
	assert.Equal(t, 1, s.Len("books"))
	assert.Equal(t, []string{"books"}, s.Indexes())
}

func TestUpdate(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	res, err := s.Builder().Into("books").Update(ctx, "b2", map[string]any{"title": "Emma", "year": 1815})
	require.NoError(t, err)
	assert.Equal(t, query.StatusNoop, res.Status)

	res, err = s.Builder().Into("books").Update(ctx, "b2", map[string]any{"genre": "romance", "id": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, query.StatusUpdated, res.Status)
	assert.Equal(t, map[string]any{"id": "b2", "title": "Emma", "year": 1815, "genre": "romance"}, res.Data)

	res, err = s.Builder().Into("books").Update(ctx, "missing", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, query.StatusNotFound, res.Status)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	hard := seeded()
	res, err := hard.Builder().From("books").Delete(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, query.StatusDeleted, res.Status)
	assert.Equal(t, 3, hard.Len("books"))

	res, err = hard.Builder().From("books").Delete(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, query.StatusNotFound, res.Status)

	soft := seeded(WithSoftDelete("deleted"))
	res, err = soft.Builder().From("books").Delete(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, query.StatusUpdated, res.Status)
	assert.Equal(t, true, res.Data["deleted"])
	assert.Equal(t, 4, soft.Len("books"))

	res, err = soft.Builder().From("books").Delete(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, query.StatusNoop, res.Status)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := seeded().Builder().From("books").Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("d%d", i%10)
			if _, err := s.Builder().Into("docs").Insert(ctx, map[string]any{"id": id}); err != nil {
				t.Error(err)
			}
			if _, err := s.Builder().Into("docs").Update(ctx, id, map[string]any{"n": i}); err != nil {
				t.Error(err)
			}
			if _, err := s.Builder().From("docs").Execute(ctx); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, s.Len("docs"))
}
