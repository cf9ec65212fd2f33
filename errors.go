package authflow

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	// TextCodeTokenExpired marks signed tokens past their expiry claim
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed marks tampered, truncated or wrong-purpose tokens
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeDuplicateEmail marks unique-constraint violations on email
	TextCodeDuplicateEmail = "DUPLICATE_EMAIL"
	// TextCodeEmptyPassword marks empty password input
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
	// TextCodeWeakPassword marks passwords failing the policy
	TextCodeWeakPassword = "WEAK_PASSWORD"
	// TextCodeResetNotRequested marks reset attempts with no pending request
	TextCodeResetNotRequested = "RESET_NOT_REQUESTED"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenExpired is returned when a signed token is past its expiry claim.
// User facing copy never distinguishes it from ErrTokenMalformed.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers signature mismatch, structural damage and
// wrong-purpose tokens
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrDuplicateEmail is returned when an email already belongs to an account
var ErrDuplicateEmail = errors.New("email is already registered", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is the single credential failure we expose:
// unknown email and wrong password are indistinguishable to the caller
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned during the login cool down window
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode("TOO_MANY_ATTEMPTS")

// ErrAccountNotVerified blocks logins for accounts that never activated
var ErrAccountNotVerified = errors.New("account is not verified", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("ACCOUNT_NOT_VERIFIED")

// ErrResetNotRequested is returned when a reset finalize carries a token
// that does not match the one persisted for the account
var ErrResetNotRequested = errors.New("no matching password reset request", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeResetNotRequested)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsDuplicateEmailError reports whether err is the duplicate email conflict,
// either ours or the storage-level unique constraint violation.
func IsDuplicateEmailError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeDuplicateEmail {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") && strings.Contains(msg, "email")
}
