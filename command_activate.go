package authflow

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// ActivateMessage redeems an activation token. This is the only path that
// creates an account row; replaying a redeemed token finds the email
// taken and creates nothing.
type ActivateMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *ActivateResponse)
}

func (e ActivateMessage) Type() string { return "user.activate" }

type ActivateResponse struct {
	User *User
}

type ActivateHandler struct {
	repo   RepositoryManager
	tokens TokenService
	policy PasswordPolicy
	logger Logger
}

// NewActivateHandler creates a handler with sane defaults.
func NewActivateHandler(repo RepositoryManager, tokens TokenService) *ActivateHandler {
	return &ActivateHandler{
		repo:   repo,
		tokens: tokens,
		policy: DefaultPasswordPolicy(),
		logger: defLogger{},
	}
}

// WithPasswordPolicy overrides the injected policy.
func (h *ActivateHandler) WithPasswordPolicy(policy PasswordPolicy) *ActivateHandler {
	h.policy = policy
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateHandler) WithLogger(logger Logger) *ActivateHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateHandler) Execute(ctx context.Context, event ActivateMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateHandler) execute(ctx context.Context, event ActivateMessage) error {
	user := &User{}
	resp := &ActivateResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return ErrTokenMalformed
	}

	claims, err := h.tokens.VerifyActivation(event.Token)
	if err != nil {
		return err
	}

	if err := h.policy.Validate(claims.Password); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// guards the race between token issuance and redemption; the
		// unique constraint on the insert is the final word
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, claims.Email); err == nil {
			return ErrDuplicateEmail
		} else if !repository.IsRecordNotFound(err) && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := HashPassword(claims.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Name = claims.Name
		user.Email = claims.Email
		user.PasswordHash = hash
		// activation is the email ownership proof
		user.Verified = true
		if id, err := hashid.NewUUID(claims.Email); err == nil {
			user.ID = id
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if goerrors.Is(err, ErrDuplicateEmail) {
				return ErrDuplicateEmail
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
	}

	h.logger.Info("account activated", "email", user.Email, "user_id", user.ID.String())

	resp.User = user

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
