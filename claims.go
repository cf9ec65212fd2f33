package authflow

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. Activation and reset tokens are signed with different
// secrets and carry the purpose as a claim; both must match on verify.
const (
	PurposeActivation = "activation"
	PurposeReset      = "reset"
)

// SessionClaims is the JWT payload minted at login
type SessionClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// UserID returns the user ID
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the token expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// ActivationClaims carries a pending registration. The cleartext password
// lives only inside the signed, short lived token, it is never persisted.
type ActivationClaims struct {
	jwt.RegisteredClaims
	Purpose  string `json:"prp"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetClaims identifies the account a password reset was issued for.
// Subject holds the account id.
type ResetClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"prp"`
}

// AccountID returns the subject the reset token was issued for
func (c *ResetClaims) AccountID() string {
	return c.RegisteredClaims.Subject
}
