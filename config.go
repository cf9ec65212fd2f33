package authflow

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// AppConfig is an environment backed Config implementation. Library
// consumers with their own configuration layer only need to satisfy
// the Config interface; this is the batteries included option.
type AppConfig struct {
	SigningKey           string
	ActivationKey        string
	ResetKey             string
	ContextKey           string
	TokenExpiration      int
	TokenTTL             time.Duration
	Issuer               string
	Audience             []string
	BaseURL              string
	RejectedRouteKey     string
	RejectedRouteDefault string

	HTTPAddr string
	DBPath   string
	Debug    bool

	SMTP SMTPConfig
}

// NewConfigFromEnv builds an AppConfig from environment variables,
// falling back to development friendly defaults for everything that
// is not a secret.
func NewConfigFromEnv() *AppConfig {
	cfg := &AppConfig{
		SigningKey:           os.Getenv("AUTH_SIGNING_KEY"),
		ActivationKey:        os.Getenv("AUTH_ACTIVATION_KEY"),
		ResetKey:             os.Getenv("AUTH_RESET_KEY"),
		ContextKey:           envOr("AUTH_CONTEXT_KEY", "authflow"),
		TokenExpiration:      envInt("AUTH_TOKEN_EXPIRATION_HOURS", 24),
		TokenTTL:             envDuration("AUTH_TOKEN_TTL", DefaultTokenTTL),
		Issuer:               envOr("AUTH_ISSUER", "authflow"),
		Audience:             envList("AUTH_AUDIENCE", "authflow"),
		BaseURL:              envOr("APP_BASE_URL", "http://localhost:7680"),
		RejectedRouteKey:     envOr("AUTH_REJECTED_ROUTE_KEY", "rejected_route"),
		RejectedRouteDefault: envOr("AUTH_REJECTED_ROUTE_DEFAULT", "/"),
		HTTPAddr:             envOr("HTTP_ADDR", ":7680"),
		DBPath:               envOr("DB_PATH", "file::memory:?cache=shared"),
		Debug:                envBool("APP_DEBUG"),
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: envInt("SMTP_PORT", 587),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: envOr("SMTP_FROM", "no-reply@localhost"),
		},
	}
	return cfg
}

// Validate checks that every secret the token service depends on is
// present. SMTP credentials are not required, the mailer degrades to a
// disabled implementation without them.
func (c *AppConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SigningKey, validation.Required),
		validation.Field(&c.ActivationKey, validation.Required),
		validation.Field(&c.ResetKey, validation.Required),
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.BaseURL, validation.Required),
	)
}

func (c *AppConfig) GetSigningKey() string           { return c.SigningKey }
func (c *AppConfig) GetActivationKey() string        { return c.ActivationKey }
func (c *AppConfig) GetResetKey() string             { return c.ResetKey }
func (c *AppConfig) GetContextKey() string           { return c.ContextKey }
func (c *AppConfig) GetTokenExpiration() int         { return c.TokenExpiration }
func (c *AppConfig) GetTokenTTL() time.Duration      { return c.TokenTTL }
func (c *AppConfig) GetIssuer() string               { return c.Issuer }
func (c *AppConfig) GetAudience() []string           { return c.Audience }
func (c *AppConfig) GetBaseURL() string              { return c.BaseURL }
func (c *AppConfig) GetRejectedRouteKey() string     { return c.RejectedRouteKey }
func (c *AppConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDefault }

var _ Config = (*AppConfig)(nil)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envList(key, def string) []string {
	v := envOr(key, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
