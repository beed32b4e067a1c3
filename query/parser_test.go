package query_test

import (
	"net/url"
	"testing"

	"github.com/goliatone/go-entity-repository/pkg/testsupport"
	"github.com/goliatone/go-entity-repository/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FilterOrderFollowsInsertion(t *testing.T) {
	b := testsupport.NewRecordingBuilder()
	query.Parse(query.NewParams("status", "active", "category", "x"), b)

	wheres := b.CallsTo("Where")
	require.Len(t, wheres, 2)
	assert.Equal(t, []any{"status", "=", "active", query.Must}, wheres[0].Args)
	assert.Equal(t, []any{"category", "=", "x", query.Must}, wheres[1].Args)

	reversed := testsupport.NewRecordingBuilder()
	query.Parse(query.NewParams("category", "x", "status", "active"), reversed)
	assert.Equal(t, "category", reversed.CallsTo("Where")[0].Args[0])
}

func TestParse_SortDefaultsToAscending(t *testing.T) {
	b := testsupport.NewRecordingBuilder()
	query.Parse(query.NewParams("_sort", "name"), b)

	sorts := b.CallsTo("OrderBy")
	require.Len(t, sorts, 1)
	assert.Equal(t, []any{"name", "asc"}, sorts[0].Args)
}

func TestParse_MultipleSortSegments(t *testing.T) {
	b := testsupport.NewRecordingBuilder()
	query.Parse(query.NewParams("_sort", "created_at:desc, name ,score:asc"), b)

	var got [][]any
	for _, c := range b.CallsTo("OrderBy") {
		got = append(got, c.Args)
	}
	assert.Equal(t, [][]any{
		{"created_at", "desc"},
		{"name", "asc"},
		{"score", "asc"},
	}, got)
}

func TestParse_SelectIsAlwaysCalled(t *testing.T) {
	tests := []struct {
		name   string
		params *query.Params
		want   []any
	}{
		{name: "no fields", params: query.NewParams(), want: []any{"*"}},
		{name: "empty fields", params: query.NewParams("_fields", " "), want: []any{"*"}},
		{name: "field list", params: query.NewParams("_fields", "name, email"), want: []any{"name", "email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testsupport.NewRecordingBuilder()
			query.Parse(tt.params, b)

			selects := b.CallsTo("Select")
			require.Len(t, selects, 1)
			assert.Equal(t, tt.want, selects[0].Args)
		})
	}
}

func TestParse_PerPageSetsLimit(t *testing.T) {
	b := testsupport.NewRecordingBuilder()
	query.Parse(query.NewParams("_per_page", "25"), b)
	assert.Equal(t, []any{25}, b.CallsTo("Limit")[0].Args)

	for _, v := range []string{"", "many"} {
		b := testsupport.NewRecordingBuilder()
		query.Parse(query.NewParams("_per_page", v), b)
		assert.Empty(t, b.CallsTo("Limit"), "value %q", v)
	}
}

func TestParse_IgnoresOtherReservedKeys(t *testing.T) {
	b := testsupport.NewRecordingBuilder()
	query.Parse(query.NewParams("_page", "3", "_limit", "4", "name", "ada"), b)

	assert.Equal(t, []string{"Select", "Where"}, b.Methods())
	assert.Empty(t, b.CallsTo("Offset"))
}

func TestParse_ReturnsSameBuilder(t *testing.T) {
	b := testsupport.NewRecordingBuilder()
	assert.Same(t, b, query.Parse(nil, b))
}

func TestPageParams(t *testing.T) {
	page, perPage := query.PageParams(query.NewParams("_page", "3", "_per_page", "20"), 1, 10)
	assert.Equal(t, 3, page)
	assert.Equal(t, 20, perPage)

	page, perPage = query.PageParams(query.NewParams("_page", "0", "_per_page", "x"), 2, 5)
	assert.Equal(t, 2, page)
	assert.Equal(t, 5, perPage)
}

func TestParams_Order(t *testing.T) {
	p, err := query.ParseQueryString("b=2&a=1&_sort=name%3Adesc&b=3")
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "_sort"}, p.Keys())
	v, _ := p.Get("b")
	assert.Equal(t, "3", v)
	v, _ = p.Get("_sort")
	assert.Equal(t, "name:desc", v)

	p.Delete("a")
	assert.Equal(t, []string{"b", "_sort"}, p.Keys())
	assert.Equal(t, "b=3&_sort=name%3Adesc", p.Encode())

	clone := p.Clone()
	clone.Set("c", "4")
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 3, clone.Len())
}

func TestParams_FromValues(t *testing.T) {
	p := query.FromValues(url.Values{"z": {"1"}, "a": {"2", "3"}})
	assert.Equal(t, []string{"a", "z"}, p.Keys())
	v, _ := p.Get("a")
	assert.Equal(t, "2", v)
}

func TestNormalizeOperator(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "", want: "=", ok: true},
		{in: "==", want: "=", ok: true},
		{in: "<>", want: "!=", ok: true},
		{in: "LIKE", want: "like", ok: true},
		{in: ">=", want: ">=", ok: true},
		{in: "regexp", want: "regexp", ok: false},
	}
	for _, tt := range tests {
		got, ok := query.NormalizeOperator(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.ok, ok)
	}
}

func TestRequest_Validate(t *testing.T) {
	var r query.Request
	assert.Error(t, r.Validate())

	r.Index = "users"
	r.AddCondition("name", "=", "ada")
	assert.NoError(t, r.Validate())

	r.AddCondition("name", "~", "ada")
	assert.Error(t, r.Validate())
}

func TestRequest_Project(t *testing.T) {
	r := query.Request{}
	r.SetFields("name")
	doc := map[string]any{"id": "1", "name": "ada", "email": "a@x"}
	assert.Equal(t, map[string]any{"id": "1", "name": "ada"}, r.Project(doc))

	r.SetFields("*")
	assert.Equal(t, doc, r.Project(doc))
}
