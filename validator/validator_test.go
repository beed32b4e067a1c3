package validator_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-entity-repository/entity"
	"github.com/goliatone/go-entity-repository/validator"
)

type account struct {
	entity.Base
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Code     string `json:"code"`
}

func TestRules(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		v     entity.Validator
		value any
		valid bool
		msg   string
	}{
		{"required blank", validator.Required(), "", false, "cannot be blank"},
		{"required nil", validator.Required(), nil, false, "cannot be blank"},
		{"required ok", validator.Required(), "x", true, ""},
		{"length short", validator.Length(3, 10), "ab", false, "the length must be between 3 and 10"},
		{"length empty passes", validator.Length(3, 10), "", true, ""},
		{"email bad", validator.Email(), "nope", false, "must be a valid email address"},
		{"email ok", validator.Email(), "ada@example.com", true, ""},
		{"email tagged", validator.Email(), "ada+news@example.co.uk", true, ""},
		{"email no domain", validator.Email(), "ada@", false, "must be a valid email address"},
		{"email empty passes", validator.Email(), "", true, ""},
		{"in bad", validator.In("admin", "editor"), "root", false, "must be a valid value"},
		{"in ok", validator.In("admin", "editor"), "admin", true, ""},
		{"match bad", validator.Match(regexp.MustCompile(`^[A-Z]{3}$`)), "ab1", false, "must be in a valid format"},
		{"custom rule", validator.Rules(validation.By(func(any) error { return errors.New("nope") })), "x", false, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.v.SetProperty("field")
			got := tt.v.Validate(ctx, tt.value)
			assert.Equal(t, tt.valid, got)
			msgs := tt.v.ConsumeErrors("field")
			if tt.valid {
				assert.Empty(t, msgs)
				return
			}
			assert.Equal(t, []string{tt.msg}, msgs)
			assert.Empty(t, tt.v.ConsumeErrors("field"), "errors are consumed")
		})
	}
}

func TestRules_ThroughEntityValidate(t *testing.T) {
	a := &account{Email: "bad", Role: "admin"}
	a.AddValidator("email", validator.Required())
	a.AddValidator("email", validator.Email())
	a.AddValidator("username", validator.Required())
	a.AddValidator("role", validator.In("admin"))

	ok := entity.Validate(context.Background(), a, nil)
	assert.False(t, ok)
	assert.Equal(t, map[string][]string{
		"email":    {"must be a valid email address"},
		"username": {"cannot be blank"},
	}, a.Errors())

	a.Email = "ada@example.com"
	a.Username = "ada"
	assert.True(t, entity.Validate(context.Background(), a, nil))
	assert.Empty(t, a.Errors())
}

func TestScoped(t *testing.T) {
	a := &account{}
	a.AddValidator("code", validator.OnCreate(validator.Required()))

	a.SetEntityState(entity.Create)
	assert.False(t, entity.Validate(context.Background(), a, nil))

	a.SetEntityState(entity.Update)
	assert.True(t, entity.Validate(context.Background(), a, nil))

	u := &account{}
	u.AddValidator("code", validator.OnUpdate(validator.Required()))
	assert.True(t, entity.Validate(context.Background(), u, nil))
	u.SetEntityState(entity.Update)
	assert.False(t, entity.Validate(context.Background(), u, nil))
	assert.Equal(t, []string{"cannot be blank"}, u.Errors()["code"])
}

type lookupCall struct {
	field   string
	value   any
	exclude string
}

type fakeLookup struct {
	taken map[string]string // value -> owning id
	err   error
	calls []lookupCall
}

func (f *fakeLookup) ExistsWhere(_ context.Context, field string, value any, excludeID string) (bool, error) {
	f.calls = append(f.calls, lookupCall{field, value, excludeID})
	if f.err != nil {
		return false, f.err
	}
	owner, ok := f.taken[value.(string)]
	return ok && owner != excludeID, nil
}

func TestUnique(t *testing.T) {
	lookup := &fakeLookup{taken: map[string]string{"ada": "u1"}}
	reg := entity.NewRegistry()
	reg.Register(&account{}, entity.NewBatch().Add("Username", validator.Unique(lookup)))

	fresh := &account{Username: "ada"}
	assert.False(t, entity.Validate(context.Background(), fresh, reg))
	assert.Equal(t, []string{"has already been taken"}, fresh.Errors()["Username"])

	own := &account{Username: "ada"}
	own.SetID("u1")
	own.SetEntityState(entity.Update)
	assert.True(t, entity.Validate(context.Background(), own, reg))

	require.Len(t, lookup.calls, 2)
	assert.Equal(t, lookupCall{"username", "ada", ""}, lookup.calls[0])
	assert.Equal(t, lookupCall{"username", "ada", "u1"}, lookup.calls[1])

	empty := &account{}
	assert.True(t, entity.Validate(context.Background(), empty, reg))
	assert.Len(t, lookup.calls, 2, "empty values skip the lookup")
}

func TestUnique_LookupError(t *testing.T) {
	v := validator.Unique(&fakeLookup{err: errors.New("store down")}, "login")
	v.SetProperty("username")
	assert.False(t, v.Validate(context.Background(), "ada"))
	assert.Equal(t, []string{"could not check uniqueness: store down"}, v.ConsumeErrors("username"))
}
