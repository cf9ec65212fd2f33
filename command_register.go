package authflow

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// RegisterMessage carries a registration request. No account row is
// created here: the pending registration is signed into an activation
// token and mailed to the address, creation happens at redemption.
type RegisterMessage struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	OnResponse      func(resp *RegisterResponse)
}

func (e RegisterMessage) Type() string { return "user.register" }

type RegisterResponse struct {
	Token     string
	EmailSent bool
}

type RegisterHandler struct {
	repo    RepositoryManager
	tokens  TokenService
	mailer  Mailer
	policy  PasswordPolicy
	baseURL string
	logger  Logger
}

// NewRegisterHandler creates a handler with sane defaults.
func NewRegisterHandler(repo RepositoryManager, tokens TokenService, mailer Mailer, baseURL string) *RegisterHandler {
	return &RegisterHandler{
		repo:    repo,
		tokens:  tokens,
		mailer:  mailer,
		policy:  DefaultPasswordPolicy(),
		baseURL: baseURL,
		logger:  defLogger{},
	}
}

// WithPasswordPolicy overrides the injected policy.
func (h *RegisterHandler) WithPasswordPolicy(policy PasswordPolicy) *RegisterHandler {
	h.policy = policy
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterHandler) WithLogger(logger Logger) *RegisterHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterHandler) Execute(ctx context.Context, event RegisterMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterHandler) execute(ctx context.Context, event RegisterMessage) error {
	resp := &RegisterResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.validate(event); err != nil {
		return err
	}

	email := NormalizeEmail(event.Email)

	// Pre check only: the unique constraint at insert time is the
	// authoritative guard against the duplicate email race.
	if _, err := h.repo.Users().GetByEmail(ctx, email); err == nil {
		return ErrDuplicateEmail
	} else if !repository.IsRecordNotFound(err) && !goerrors.IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}

	token, err := h.tokens.IssueActivation(strings.TrimSpace(event.Name), email, event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue activation token")
	}

	subject, body := ActivationEmail(h.baseURL, token)
	if err := h.mailer.Send(ctx, email, subject, body); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send activation email")
	}

	h.logger.Info("activation email sent", "email", email)

	resp.Token = token
	resp.EmailSent = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// validate collects every input failure before reporting, the form needs
// the full list, not the first miss.
func (h *RegisterHandler) validate(event RegisterMessage) error {
	var messages []string

	if strings.TrimSpace(event.Name) == "" ||
		strings.TrimSpace(event.Email) == "" ||
		event.Password == "" || event.ConfirmPassword == "" {
		messages = append(messages, "please fill in all fields")
	}

	name := strings.TrimSpace(event.Name)
	if name != "" && (len([]rune(name)) < 2 || len([]rune(name)) > 50) {
		messages = append(messages, "name must be between 2 and 50 characters")
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
