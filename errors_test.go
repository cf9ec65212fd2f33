package authflow_test

import (
	"errors"
	"testing"

	"github.com/csauvage/authflow"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, authflow.IsTokenExpiredError(authflow.ErrTokenExpired))
	assert.True(t, authflow.IsTokenExpiredError(errors.New("token is expired by 5m")))
	assert.False(t, authflow.IsTokenExpiredError(authflow.ErrTokenMalformed))
	assert.False(t, authflow.IsTokenExpiredError(nil))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, authflow.IsMalformedError(authflow.ErrTokenMalformed))
	assert.True(t, authflow.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, authflow.IsMalformedError(authflow.ErrTokenExpired))
	assert.False(t, authflow.IsMalformedError(nil))
}

func TestIsDuplicateEmailError(t *testing.T) {
	assert.True(t, authflow.IsDuplicateEmailError(authflow.ErrDuplicateEmail))
	assert.True(t, authflow.IsDuplicateEmailError(
		errors.New("UNIQUE constraint failed: users.email"),
	))
	assert.False(t, authflow.IsDuplicateEmailError(errors.New("some other failure")))
	assert.False(t, authflow.IsDuplicateEmailError(nil))
}
