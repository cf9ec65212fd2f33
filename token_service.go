package authflow

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long activation and reset tokens stay valid.
// Expiry is self contained in the token, nothing is checked against a store.
var DefaultTokenTTL = 30 * time.Minute

// TokenService issues and verifies the three token kinds we deal with:
// login sessions, account activation and password reset. Activation and
// reset use purpose specific secrets that are never interchangeable.
type TokenService interface {
	Generate(identity Identity) (string, error)
	Validate(token string) (*SessionClaims, error)
	IssueActivation(name, email, password string) (string, error)
	VerifyActivation(token string) (*ActivationClaims, error)
	IssueReset(accountID uuid.UUID) (string, error)
	VerifyReset(token string) (*ResetClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	activationKey   []byte
	resetKey        []byte
	tokenExpiration int
	tokenTTL        time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
	now             func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	ttl := cfg.GetTokenTTL()
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenServiceImpl{
		signingKey:      []byte(cfg.GetSigningKey()),
		activationKey:   []byte(cfg.GetActivationKey()),
		resetKey:        []byte(cfg.GetResetKey()),
		tokenExpiration: cfg.GetTokenExpiration(),
		tokenTTL:        ttl,
		issuer:          cfg.GetIssuer(),
		audience:        jwt.ClaimStrings(cfg.GetAudience()),
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock overrides the time source, used by tests to age tokens.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Generate creates a session JWT for an authenticated identity
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
		UID: identity.ID(),
	}

	return ts.sign(claims, ts.signingKey)
}

// Validate parses and validates a session token string
func (ts *TokenServiceImpl) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := ts.verify(tokenString, ts.signingKey, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueActivation signs a pending registration into a short lived token.
// No account row exists until the token is redeemed.
func (ts *TokenServiceImpl) IssueActivation(name, email, password string) (string, error) {
	now := ts.now()
	claims := &ActivationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   NormalizeEmail(email),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.tokenTTL)),
		},
		Purpose:  PurposeActivation,
		Name:     name,
		Email:    NormalizeEmail(email),
		Password: password,
	}

	return ts.sign(claims, ts.activationKey)
}

// VerifyActivation decodes an activation token. Expired and tampered
// tokens come back as distinct rich errors for logging, the user facing
// copy treats them the same.
func (ts *TokenServiceImpl) VerifyActivation(tokenString string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := ts.verify(tokenString, ts.activationKey, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeActivation {
		ts.logger.Error("activation token carries wrong purpose", "purpose", claims.Purpose)
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// IssueReset signs a reset token for the given account
func (ts *TokenServiceImpl) IssueReset(accountID uuid.UUID) (string, error) {
	now := ts.now()
	claims := &ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   accountID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.tokenTTL)),
		},
		Purpose: PurposeReset,
	}

	return ts.sign(claims, ts.resetKey)
}

// VerifyReset decodes a reset token
func (ts *TokenServiceImpl) VerifyReset(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := ts.verify(tokenString, ts.resetKey, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeReset {
		ts.logger.Error("reset token carries wrong purpose", "purpose", claims.Purpose)
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) verify(tokenString string, key []byte, claims jwt.Claims) error {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("token verify could not validate claims")
		return ErrTokenMalformed
	}

	return nil
}
