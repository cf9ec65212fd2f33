package authflow_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/csauvage/authflow"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testConfig satisfies authflow.Config with deterministic values
type testConfig struct {
	ttl        time.Duration
	expiration int
}

func (c testConfig) GetSigningKey() string    { return "test-signing-key" }
func (c testConfig) GetActivationKey() string { return "test-activation-key" }
func (c testConfig) GetResetKey() string      { return "test-reset-key" }
func (c testConfig) GetContextKey() string    { return "authflow" }

func (c testConfig) GetTokenExpiration() int {
	if c.expiration > 0 {
		return c.expiration
	}
	return 24
}

func (c testConfig) GetTokenTTL() time.Duration  { return c.ttl }
func (c testConfig) GetIssuer() string           { return "authflow-test" }
func (c testConfig) GetAudience() []string       { return []string{"authflow-test"} }
func (c testConfig) GetBaseURL() string          { return "http://localhost:7680" }
func (c testConfig) GetRejectedRouteKey() string { return "rejected_route" }

func (c testConfig) GetRejectedRouteDefault() string { return "/" }

// MockMailer implements authflow.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) IsEnabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

// stubUsers satisfies authflow.Users through the embedded interface;
// tests override only the methods the code under test reaches.
type stubUsers struct {
	authflow.Users

	getByEmail      func(ctx context.Context, email string) (*authflow.User, error)
	getByID         func(ctx context.Context, id string) (*authflow.User, error)
	createTx        func(ctx context.Context, record *authflow.User) (*authflow.User, error)
	setResetTokenTx func(ctx context.Context, id string, token string) error
	resetPasswordTx func(ctx context.Context, id string, hash string) error
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*authflow.User, error) {
	return s.getByEmail(ctx, email)
}

func (s *stubUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*authflow.User, error) {
	return s.getByEmail(ctx, identifier)
}

func (s *stubUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*authflow.User, error) {
	return s.getByEmail(ctx, email)
}

func (s *stubUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*authflow.User, error) {
	return s.getByID(ctx, id)
}

func (s *stubUsers) CreateTx(ctx context.Context, tx bun.IDB, record *authflow.User, criteria ...repository.InsertCriteria) (*authflow.User, error) {
	return s.createTx(ctx, record)
}

func (s *stubUsers) SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error {
	return s.setResetTokenTx(ctx, id.String(), token)
}

func (s *stubUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	return s.resetPasswordTx(ctx, id.String(), passwordHash)
}

// stubTracker satisfies authflow.UserTracker for provider level tests
type stubTracker struct {
	getByIdentifier   func(ctx context.Context, identifier string) (*authflow.User, error)
	attemptedTracked  int
	successfulTracked int
}

func (s *stubTracker) GetByIdentifier(ctx context.Context, identifier string) (*authflow.User, error) {
	return s.getByIdentifier(ctx, identifier)
}

func (s *stubTracker) TrackAttemptedLogin(ctx context.Context, user *authflow.User) error {
	s.attemptedTracked++
	return nil
}

func (s *stubTracker) TrackSuccessfulLogin(ctx context.Context, user *authflow.User) error {
	s.successfulTracked++
	return nil
}

// stubRepo satisfies authflow.RepositoryManager; RunInTx runs the body
// with a zero transaction, the stubs below it never touch the database.
type stubRepo struct {
	users authflow.Users
}

func (s *stubRepo) Validate() error { return nil }

func (s *stubRepo) MustValidate() {}

func (s *stubRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return f(ctx, tx)
}

func (s *stubRepo) Users() authflow.Users { return s.users }

func notFoundErr() error {
	return repository.NewRecordNotFound()
}
