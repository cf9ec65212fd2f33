package authflow

import (
	"fmt"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// MinPasswordLength is the minimum accepted password length
var MinPasswordLength = 8

// PasswordPolicy is the single source of truth for password strength:
// at least MinPasswordLength characters, one uppercase letter, one digit
// and one special character. Pure predicate, no side effects. Every call
// site (register, activation, reset) gets the same instance injected.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy returns the policy with stock requirements.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: MinPasswordLength}
}

// IsValid reports whether the password satisfies all requirements.
func (p PasswordPolicy) IsValid(password string) bool {
	return p.Validate(password) == nil
}

// Validate checks the password against every requirement and reports all
// failures at once, it does not stop at the first unmet rule.
func (p PasswordPolicy) Validate(password string) error {
	if password == "" {
		return ErrNoEmptyString
	}

	minLength := p.MinLength
	if minLength <= 0 {
		minLength = MinPasswordLength
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSpecial = true
		}
	}

	var missing []string
	if len([]rune(password)) < minLength {
		missing = append(missing, fmt.Sprintf("at least %d characters", minLength))
	}
	if !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if !hasDigit {
		missing = append(missing, "a digit")
	}
	if !hasSpecial {
		missing = append(missing, "a special character")
	}

	if len(missing) == 0 {
		return nil
	}

	return errors.New(
		"password must contain "+strings.Join(missing, ", "),
		errors.CategoryValidation,
	).WithTextCode(TextCodeWeakPassword).
		WithMetadata(map[string]any{"missing": missing})
}

// Rule adapts the policy to an ozzo validation rule so payload structs can
// embed it in their Validate method.
func (p PasswordPolicy) Rule() validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		return p.Validate(s)
	}
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match", errors.CategoryValidation)
		}
		return nil
	}
}
