package authflow_test

import (
	"testing"
	"time"

	"github.com/csauvage/authflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) *authflow.TokenServiceImpl {
	t.Helper()
	return authflow.NewTokenService(testConfig{ttl: 30 * time.Minute}, testLogger{})
}

func TestActivationTokenRoundTrip(t *testing.T) {
	ts := newTokenService(t)

	token, err := ts.IssueActivation("Ada Lovelace", "Ada@Example.COM", "Abcdef1!")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.VerifyActivation(token)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", claims.Name)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Abcdef1!", claims.Password)
}

func TestResetTokenRoundTrip(t *testing.T) {
	ts := newTokenService(t)
	accountID := uuid.New()

	token, err := ts.IssueReset(accountID)
	require.NoError(t, err)

	claims, err := ts.VerifyReset(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID())
}

func TestSessionTokenRoundTrip(t *testing.T) {
	ts := newTokenService(t)
	identity := staticIdentity{id: uuid.NewString(), name: "Ada", email: "ada@example.com"}

	token, err := ts.Generate(identity)
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, identity.id, claims.UserID())
}

func TestExpiredTokensAreRejected(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)

	ts := authflow.NewTokenService(testConfig{ttl: 30 * time.Minute}, testLogger{}).
		WithClock(func() time.Time { return issuedAt })

	activation, err := ts.IssueActivation("Ada", "ada@example.com", "Abcdef1!")
	require.NoError(t, err)

	reset, err := ts.IssueReset(uuid.New())
	require.NoError(t, err)

	// move the clock back to the present, the tokens are now stale
	ts.WithClock(time.Now)

	_, err = ts.VerifyActivation(activation)
	require.Error(t, err)
	assert.True(t, authflow.IsTokenExpiredError(err))

	_, err = ts.VerifyReset(reset)
	require.Error(t, err)
	assert.True(t, authflow.IsTokenExpiredError(err))
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	ts := newTokenService(t)

	activation, err := ts.IssueActivation("Ada", "ada@example.com", "Abcdef1!")
	require.NoError(t, err)

	reset, err := ts.IssueReset(uuid.New())
	require.NoError(t, err)

	// signed with different secrets, neither verifies as the other kind
	_, err = ts.VerifyReset(activation)
	require.Error(t, err)
	assert.True(t, authflow.IsMalformedError(err))

	_, err = ts.VerifyActivation(reset)
	require.Error(t, err)
	assert.True(t, authflow.IsMalformedError(err))
}

func TestTamperedTokenIsMalformed(t *testing.T) {
	ts := newTokenService(t)

	token, err := ts.IssueReset(uuid.New())
	require.NoError(t, err)

	_, err = ts.VerifyReset(token + "x")
	require.Error(t, err)
	assert.True(t, authflow.IsMalformedError(err))
}

type staticIdentity struct {
	id    string
	name  string
	email string
}

func (s staticIdentity) ID() string    { return s.id }
func (s staticIdentity) Name() string  { return s.name }
func (s staticIdentity) Email() string { return s.email }
