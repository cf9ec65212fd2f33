package authflow

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// InitializePasswordResetMessage starts the forgot-password flow. The
// response is uniform whether or not the address belongs to an account,
// the flow never confirms account existence to the caller.
type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Token     string
	EmailSent bool
	Success   bool
}

type InitializePasswordResetHandler struct {
	repo    RepositoryManager
	tokens  TokenService
	mailer  Mailer
	baseURL string
	logger  Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, tokens TokenService, mailer Mailer, baseURL string) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:    repo,
		tokens:  tokens,
		mailer:  mailer,
		baseURL: baseURL,
		logger:  defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if NormalizeEmail(event.Email) == "" {
		return goerrors.New("please enter an email", goerrors.CategoryValidation)
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				// unknown address: same outward response, nothing sent
				h.logger.Debug("password reset requested for unknown email")
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		token, err := h.tokens.IssueReset(user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset token")
		}

		// each new request overwrites the previous token
		if err := h.repo.Users().SetResetTokenTx(ctx, tx, user.ID, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist reset token")
		}

		subject, body := ResetEmail(h.baseURL, token)
		if err := h.mailer.Send(ctx, user.Email, subject, body); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send reset email")
		}

		resp.Token = token
		resp.EmailSent = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
