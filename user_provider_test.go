package authflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/csauvage/authflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifiedUser(t *testing.T, password string) *authflow.User {
	t.Helper()
	hash, err := authflow.HashPassword(password)
	require.NoError(t, err)
	return &authflow.User{
		ID:           uuid.New(),
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		PasswordHash: hash,
		Verified:     true,
	}
}

func TestVerifyIdentitySuccess(t *testing.T) {
	user := verifiedUser(t, "Abcdef1!")
	users := &stubTracker{
		getByIdentifier: func(context.Context, string) (*authflow.User, error) {
			return user, nil
		},
	}

	provider := authflow.NewUserProvider(users).WithLogger(testLogger{})

	identity, err := provider.VerifyIdentity(context.Background(), "ada@example.com", "Abcdef1!")
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "ada@example.com", identity.Email())
	assert.Equal(t, "Ada Lovelace", identity.Name())
	assert.Equal(t, 1, users.successfulTracked)
	assert.Equal(t, 0, users.attemptedTracked)
}

func TestVerifyIdentityWrongPassword(t *testing.T) {
	user := verifiedUser(t, "Abcdef1!")
	users := &stubTracker{
		getByIdentifier: func(context.Context, string) (*authflow.User, error) {
			return user, nil
		},
	}

	provider := authflow.NewUserProvider(users).WithLogger(testLogger{})

	_, err := provider.VerifyIdentity(context.Background(), "ada@example.com", "not-the-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, authflow.ErrMismatchedHashAndPassword)
	assert.Equal(t, 1, users.attemptedTracked)
}

func TestVerifyIdentityUnknownEmailSameError(t *testing.T) {
	users := &stubTracker{
		getByIdentifier: func(context.Context, string) (*authflow.User, error) {
			return nil, notFoundErr()
		},
	}

	provider := authflow.NewUserProvider(users).WithLogger(testLogger{})

	_, err := provider.VerifyIdentity(context.Background(), "nobody@example.com", "Abcdef1!")
	require.Error(t, err)

	// indistinguishable from a wrong password
	assert.ErrorIs(t, err, authflow.ErrMismatchedHashAndPassword)
}

func TestVerifyIdentityUnverifiedAccount(t *testing.T) {
	user := verifiedUser(t, "Abcdef1!")
	user.Verified = false

	users := &stubTracker{
		getByIdentifier: func(context.Context, string) (*authflow.User, error) {
			return user, nil
		},
	}

	provider := authflow.NewUserProvider(users).WithLogger(testLogger{})

	_, err := provider.VerifyIdentity(context.Background(), "ada@example.com", "Abcdef1!")
	require.Error(t, err)
	assert.ErrorIs(t, err, authflow.ErrAccountNotVerified)
}

func TestVerifyIdentityTooManyAttempts(t *testing.T) {
	user := verifiedUser(t, "Abcdef1!")
	now := time.Now()
	user.LoginAttempts = authflow.MaxLoginAttempts + 1
	user.LoginAttemptAt = &now

	users := &stubTracker{
		getByIdentifier: func(context.Context, string) (*authflow.User, error) {
			return user, nil
		},
	}

	provider := authflow.NewUserProvider(users).WithLogger(testLogger{})

	_, err := provider.VerifyIdentity(context.Background(), "ada@example.com", "Abcdef1!")
	require.Error(t, err)
	assert.ErrorIs(t, err, authflow.ErrTooManyLoginAttempts)
}

func TestVerifyIdentityCooldownExpiredResetsCounter(t *testing.T) {
	user := verifiedUser(t, "Abcdef1!")
	stale := time.Now().Add(-48 * time.Hour)
	user.LoginAttempts = authflow.MaxLoginAttempts + 3
	user.LoginAttemptAt = &stale

	users := &stubTracker{
		getByIdentifier: func(context.Context, string) (*authflow.User, error) {
			return user, nil
		},
	}

	provider := authflow.NewUserProvider(users).WithLogger(testLogger{})

	// the attempt window lapsed, the counter no longer blocks the login
	identity, err := provider.VerifyIdentity(context.Background(), "ada@example.com", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())
}
