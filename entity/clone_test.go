package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone_DeepCopiesNestedState(t *testing.T) {
	deleted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &testUser{
		Name:      "Ada",
		Address:   &testAddress{Street: "Main St"},
		Tags:      []testTag{{Label: "go"}},
		Roles:     []string{"admin"},
		DeletedAt: &deleted,
	}
	src.SetID("u1")
	src.Hide("email")
	src.AddValidator("name", &stubValidator{message: "is required"})

	dst := Clone(src)
	require.NotSame(t, src, dst)
	require.NotSame(t, src.Address, dst.Address)
	require.NotSame(t, src.DeletedAt, dst.DeletedAt)

	dst.Address.Street = "Elm St"
	dst.Tags[0].Label = "rust"
	dst.Roles[0] = "guest"
	dst.Show("email")
	dst.Name = ""

	assert.Equal(t, "Main St", src.Address.Street)
	assert.Equal(t, "go", src.Tags[0].Label)
	assert.Equal(t, "admin", src.Roles[0])
	assert.True(t, src.IsHidden("email"))
	assert.Equal(t, "u1", dst.GetID())

	assert.False(t, Validate(context.Background(), dst, nil))
	assert.True(t, Validate(context.Background(), src, nil))
	assert.Empty(t, src.Errors())
}

func TestClone_NilAndValues(t *testing.T) {
	var nilUser *testUser
	assert.Nil(t, Clone(nilUser))

	p := point{X: 1, Y: 2}
	assert.Equal(t, p, Clone(p))
}
