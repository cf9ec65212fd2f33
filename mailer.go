package authflow

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// Mailer delivers the templated messages the flows produce. The transport
// is a black box collaborator: failures surface as generic dependency
// errors, never as user facing detail.
type Mailer interface {
	// IsEnabled determines if the smtp transport is configured or not.
	IsEnabled() bool

	// Send delivers a single HTML message.
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPConfig carries the mail transport credentials
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
	logger Logger
}

type disabledMailer struct {
	logger Logger
}

// NewMailer returns a Mailer backed by SMTP. When the required
// credentials are missing the returned mailer is disabled and only logs
// what it would have sent, which keeps local development working without
// a mail account.
func NewMailer(cfg SMTPConfig, logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}

	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		logger.Info("mail transport disabled, messages will be logged only")
		return &disabledMailer{logger: logger}
	}

	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   cfg.From,
		logger: logger,
	}
}

func (m *smtpMailer) IsEnabled() bool { return true }

func (m *smtpMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled before sending mail")
	default:
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("mail delivery failed", "to", to, "error", err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to deliver mail")
	}

	return nil
}

func (m *disabledMailer) IsEnabled() bool { return false }

func (m *disabledMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.logger.Info("mail (disabled transport)", "to", to, "subject", subject, "body", htmlBody)
	return nil
}

// ActivationEmail builds the account activation message
func ActivationEmail(baseURL, token string) (subject, body string) {
	subject = "Account verification"
	body = fmt.Sprintf(`<h2>Please click the link below to activate your account</h2>
<p>%s/auth/activate/%s</p>
<p><b>Note:</b> this link expires in 30 minutes.</p>`, baseURL, token)
	return subject, body
}

// ResetEmail builds the password reset message
func ResetEmail(baseURL, token string) (subject, body string) {
	subject = "Password reset request"
	body = fmt.Sprintf(`<h2>Click the link below to reset your password</h2>
<p>%s/auth/forgot/%s</p>
<p><b>Note:</b> this link expires in 30 minutes.</p>`, baseURL, token)
	return subject, body
}
