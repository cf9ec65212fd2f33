package authflow

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// PasswordResetVerifyMessage redeems a reset link. It resolves the token
// to an account so the change-password form can be shown; the finalize
// step verifies the token again before touching the password.
type PasswordResetVerifyMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *PasswordResetVerifyResponse)
}

func (p PasswordResetVerifyMessage) Type() string { return "user.password_reset_verify" }

type PasswordResetVerifyResponse struct {
	AccountID string
	Email     string
	Found     bool
	Expired   bool
}

type PasswordResetVerifyHandler struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
}

// NewPasswordResetVerifyHandler creates a handler with sane defaults.
func NewPasswordResetVerifyHandler(repo RepositoryManager, tokens TokenService) *PasswordResetVerifyHandler {
	return &PasswordResetVerifyHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *PasswordResetVerifyHandler) WithLogger(logger Logger) *PasswordResetVerifyHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *PasswordResetVerifyHandler) Execute(ctx context.Context, event PasswordResetVerifyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during reset verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *PasswordResetVerifyHandler) execute(ctx context.Context, event PasswordResetVerifyMessage) error {
	resp := &PasswordResetVerifyResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.tokens.VerifyReset(event.Token)
	if err != nil {
		if IsTokenExpiredError(err) {
			resp.Expired = true
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return err
	}

	user, err := h.repo.Users().GetByID(ctx, claims.AccountID())
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			// valid signature but no matching account, expected flow
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve account for reset")
	}

	// a token that no longer matches the persisted one has been
	// superseded or already redeemed
	if user.ResetToken != event.Token {
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	resp.Found = true
	resp.AccountID = user.ID.String()
	resp.Email = user.Email

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
