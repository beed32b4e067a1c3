package entity

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValidator fails when the value is an empty string and records the
// configuration it received.
type stubValidator struct {
	message string
	onlyIn  *State

	state    State
	property string
	id       string
	errors   []string
	runs     int
}

func (v *stubValidator) SetContext(state State)  { v.state = state }
func (v *stubValidator) SetProperty(name string) { v.property = name }
func (v *stubValidator) SetIdentifier(id string) { v.id = id }

func (v *stubValidator) Validate(_ context.Context, value any) bool {
	v.runs++
	if v.onlyIn != nil && *v.onlyIn != v.state {
		return true
	}
	s, _ := value.(string)
	if strings.TrimSpace(s) != "" {
		return true
	}
	v.errors = append(v.errors, v.property+" "+v.message)
	return false
}

func (v *stubValidator) ConsumeErrors(property string) []string {
	out := v.errors
	v.errors = nil
	return out
}

func (v *stubValidator) Clone() Validator {
	c := *v
	c.errors = nil
	return &c
}

func TestValidate_CollectsErrors(t *testing.T) {
	u := &testUser{Name: "Ada"}
	u.AddValidator("name", &stubValidator{message: "is required"})
	u.AddValidator("email", &stubValidator{message: "is required"})

	assert.False(t, Validate(context.Background(), u, nil))
	assert.Equal(t, map[string][]string{"email": {"email is required"}}, u.Errors())

	u.Email = "ada@example.com"
	assert.True(t, Validate(context.Background(), u, nil))
	assert.Empty(t, u.Errors())
}

func TestValidate_IdempotentWithoutMutation(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&testUser{}, NewBatch().Add("name", &stubValidator{message: "is required"}))

	u := &testUser{}
	u.AddValidator("email", &stubValidator{message: "is required"})

	first := Validate(context.Background(), u, reg)
	firstErrors := u.Errors()
	second := Validate(context.Background(), u, reg)

	assert.False(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, firstErrors, u.Errors())
	assert.Len(t, u.base().validators, 2, "registry batches are merged once")
}

func TestValidate_LastFailingValidatorOwnsSlot(t *testing.T) {
	u := &testUser{}
	u.AddValidator("name", &stubValidator{message: "first"})
	u.AddValidator("name", &stubValidator{message: "second"})

	Validate(context.Background(), u, nil)
	assert.Equal(t, []string{"name second"}, u.Errors()["name"])
}

func TestValidate_FirstBatchWins(t *testing.T) {
	firstBatch := &stubValidator{message: "from first batch"}
	secondBatch := &stubValidator{message: "from second batch"}

	reg := NewRegistry()
	reg.Register(&testUser{}, NewBatch().Add("name", firstBatch))
	reg.Register(&testUser{}, NewBatch().Add("name", secondBatch).Add("email", &stubValidator{message: "is required"}))

	u := &testUser{}
	Validate(context.Background(), u, reg)

	errs := u.Errors()
	assert.Equal(t, []string{"name from first batch"}, errs["name"])
	assert.Equal(t, []string{"email is required"}, errs["email"])
}

func TestValidate_LocalValidatorsRunBeforeRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&testUser{}, NewBatch().Add("name", &stubValidator{message: "from registry"}))

	u := &testUser{}
	u.AddValidator("name", &stubValidator{message: "local"})

	Validate(context.Background(), u, reg)
	assert.Equal(t, []string{"name local"}, u.Errors()["name"])
}

func TestValidate_ConfiguresValidators(t *testing.T) {
	v := &stubValidator{message: "is required"}
	u := &testUser{}
	u.SetID("u7")
	u.SetEntityState(Update)
	u.AddValidator("name", v)

	Validate(context.Background(), u, nil)

	assert.Equal(t, Update, v.state)
	assert.Equal(t, "name", v.property)
	assert.Equal(t, "u7", v.id)
	assert.Equal(t, 1, v.runs)
}

func TestValidate_StateScopedValidator(t *testing.T) {
	onCreate := Create
	u := &testUser{}
	u.AddValidator("password", &stubValidator{message: "is required", onlyIn: &onCreate})

	assert.False(t, Validate(context.Background(), u, nil))

	u.SetEntityState(Update)
	assert.True(t, Validate(context.Background(), u, nil))
}

func TestValidate_UndeclaredPropertyValidatesNil(t *testing.T) {
	u := &testUser{}
	u.AddValidator("nickname", &stubValidator{message: "is required"})

	assert.False(t, Validate(context.Background(), u, nil))
	assert.Equal(t, []string{"nickname is required"}, u.Errors()["nickname"])
}

func TestValidate_RegistryValidatorsAreClonedPerRecord(t *testing.T) {
	shared := &stubValidator{message: "is required"}
	reg := NewRegistry()
	reg.Register(testUser{}, NewBatch().Add("name", shared))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := &testUser{}
			Validate(context.Background(), u, reg)
		}()
	}
	wg.Wait()

	assert.Zero(t, shared.runs)
}

func TestRegistry_Batches(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.Batches(&testUser{}))

	reg.Register(&testUser{}, NewBatch().Add("name").Add("email"))
	reg.Register(&testUser{}, nil)

	batches := reg.Batches(testUser{})
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"name", "email"}, batches[0].Properties())

	var nilRegistry *Registry
	assert.Nil(t, nilRegistry.Batches(&testUser{}))
}
