package authflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/csauvage/authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterIssuesActivationNoRowCreated(t *testing.T) {
	ctx := context.Background()

	users := &stubUsers{
		getByEmail: func(context.Context, string) (*authflow.User, error) {
			return nil, notFoundErr()
		},
	}
	repo := &stubRepo{users: users}
	tokens := newTokenService(t)
	mailer := &MockMailer{}

	var sentBody string
	mailer.On("Send", mock.Anything, "ada@example.com", mock.Anything, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			sentBody = args.String(3)
		}).Once()

	var resp *authflow.RegisterResponse
	event := authflow.RegisterMessage{
		Name:            "Ada Lovelace",
		Email:           "Ada@Example.com",
		Password:        "Abcdef1!",
		ConfirmPassword: "Abcdef1!",
		OnResponse: func(r *authflow.RegisterResponse) {
			resp = r
		},
	}

	handler := authflow.NewRegisterHandler(repo, tokens, mailer, "http://localhost:7680").
		WithLogger(testLogger{})

	err := handler.Execute(ctx, event)
	require.NoError(t, err)

	require.NotNil(t, resp)
	assert.True(t, resp.EmailSent)
	require.NotEmpty(t, resp.Token)
	assert.Contains(t, sentBody, resp.Token)
	assert.Contains(t, sentBody, "/auth/activate/")

	// the mailed token carries the pending profile
	claims, err := tokens.VerifyActivation(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.Name)

	mailer.AssertExpectations(t)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	users := &stubUsers{
		getByEmail: func(context.Context, string) (*authflow.User, error) {
			t.Fatal("store must not be touched for invalid input")
			return nil, nil
		},
	}
	repo := &stubRepo{users: users}
	mailer := &MockMailer{}

	handler := authflow.NewRegisterHandler(repo, newTokenService(t), mailer, "http://localhost:7680").
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), authflow.RegisterMessage{
		Name:            "Ada",
		Email:           "ada@example.com",
		Password:        "weakpass",
		ConfirmPassword: "weakpass",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "password must contain")
	mailer.AssertNotCalled(t, "Send")
}

func TestRegisterCollectsAllValidationFailures(t *testing.T) {
	handler := authflow.NewRegisterHandler(
		&stubRepo{users: &stubUsers{}},
		newTokenService(t),
		&MockMailer{},
		"http://localhost:7680",
	).WithLogger(testLogger{})

	err := handler.Execute(context.Background(), authflow.RegisterMessage{
		Name:            "A",
		Email:           "ada@example.com",
		Password:        "weak",
		ConfirmPassword: "weaker",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "name must be between 2 and 50 characters")
	assert.Contains(t, err.Error(), "passwords do not match")
	assert.Contains(t, err.Error(), "password must contain")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := &stubUsers{
		getByEmail: func(context.Context, string) (*authflow.User, error) {
			return &authflow.User{Email: "ada@example.com"}, nil
		},
	}
	repo := &stubRepo{users: users}
	mailer := &MockMailer{}

	handler := authflow.NewRegisterHandler(repo, newTokenService(t), mailer, "http://localhost:7680").
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), authflow.RegisterMessage{
		Name:            "Ada",
		Email:           "ada@example.com",
		Password:        "Abcdef1!",
		ConfirmPassword: "Abcdef1!",
	})

	require.Error(t, err)
	assert.True(t, authflow.IsDuplicateEmailError(err))
	mailer.AssertNotCalled(t, "Send")
}

func TestRegisterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := authflow.NewRegisterHandler(
		&stubRepo{users: &stubUsers{}},
		newTokenService(t),
		&MockMailer{},
		"http://localhost:7680",
	).WithLogger(testLogger{})

	// give the cancellation a chance to propagate
	time.Sleep(time.Millisecond)

	err := handler.Execute(ctx, authflow.RegisterMessage{
		Name:            "Ada",
		Email:           "ada@example.com",
		Password:        "Abcdef1!",
		ConfirmPassword: "Abcdef1!",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled during user registration")
}
