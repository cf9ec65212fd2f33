package authflow

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// FinalizePasswordResetMessage replaces an account password. The token is
// required here: its signature is verified and it must match the token
// persisted by the initialize step. The update clears the stored token,
// so each reset link works exactly once.
type FinalizePasswordResetMessage struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	tokens TokenService
	policy PasswordPolicy
	logger Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager, tokens TokenService) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:   repo,
		tokens: tokens,
		policy: DefaultPasswordPolicy(),
		logger: defLogger{},
	}
}

// WithPasswordPolicy overrides the injected policy.
func (h *FinalizePasswordResetHandler) WithPasswordPolicy(policy PasswordPolicy) *FinalizePasswordResetHandler {
	h.policy = policy
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.validate(event); err != nil {
		return err
	}

	claims, err := h.tokens.VerifyReset(event.Token)
	if err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByID(ctx, claims.AccountID())
		if err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				return ErrResetNotRequested
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve account for password reset")
		}

		// the token has to be the one we persisted; anything else is
		// unrelated, superseded or already redeemed
		if user.ResetToken == "" || user.ResetToken != event.Token {
			return ErrResetNotRequested
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		// replaces the hash and clears reset_token in one statement
		if err := h.repo.Users().ResetPasswordTx(ctx, tx, user.ID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		h.logger.Info("password reset finalized", "user_id", user.ID.String())
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	return nil
}

func (h *FinalizePasswordResetHandler) validate(event FinalizePasswordResetMessage) error {
	var messages []string

	if event.Token == "" {
		messages = append(messages, "reset token is required")
	}

	if event.Password == "" || event.ConfirmPassword == "" {
		messages = append(messages, "please fill in all fields")
	}

	if event.Password != event.ConfirmPassword {
		messages = append(messages, "passwords do not match")
	}

	if event.Password != "" {
		if err := h.policy.Validate(event.Password); err != nil {
			messages = append(messages, err.Error())
		}
	}

	if len(messages) == 0 {
		return nil
	}

	return goerrors.New(strings.Join(messages, "; "), goerrors.CategoryValidation).
		WithMetadata(map[string]any{"messages": messages})
}
