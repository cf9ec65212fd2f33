package authflow_test

import (
	"testing"

	"github.com/csauvage/authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordAndCompare(t *testing.T) {
	hash, err := authflow.HashPassword("Abcdef1!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "Abcdef1!", hash)

	assert.NoError(t, authflow.ComparePasswordAndHash("Abcdef1!", hash))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := authflow.HashPassword("")
	require.Error(t, err)
	assert.ErrorIs(t, err, authflow.ErrNoEmptyString)
}

func TestComparePasswordAndHashMismatch(t *testing.T) {
	hash, err := authflow.HashPassword("Abcdef1!")
	require.NoError(t, err)

	err = authflow.ComparePasswordAndHash("wrong-password", hash)
	require.Error(t, err)
	assert.ErrorIs(t, err, authflow.ErrMismatchedHashAndPassword)
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := authflow.HashPassword("Abcdef1!")
	require.NoError(t, err)
	h2, err := authflow.HashPassword("Abcdef1!")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
