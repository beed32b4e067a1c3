package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateHash(t *testing.T) {
	u := &testUser{Password: "s3cret"}

	sum, err := CreateHash(u, "password", "pepper", "app-key")
	require.NoError(t, err)
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, u.Password)

	other := &testUser{Password: "s3cret"}
	otherSum, err := CreateHash(other, "password", "pepper", "app-key")
	require.NoError(t, err)
	assert.Equal(t, sum, otherSum)

	ok, err := VerifyHash(u, "password", "s3cret", "pepper", "app-key")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyHash(u, "password", "wrong", "pepper", "app-key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateHash_Errors(t *testing.T) {
	u := &testUser{}

	_, err := CreateHash(u, "pin_code", "", "k")
	require.Error(t, err)
	assert.True(t, IsPropertyNotFound(err))

	_, err = CreateHash(u, "age", "", "k")
	require.Error(t, err)
	assert.True(t, IsInvalidEntity(err))
}
