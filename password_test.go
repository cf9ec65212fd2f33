package authflow_test

import (
	"testing"

	"github.com/csauvage/authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordPolicyAcceptsStrongPasswords(t *testing.T) {
	policy := authflow.DefaultPasswordPolicy()

	for _, password := range []string{
		"Abcdef1!",
		"Sup3r-Secret",
		"P@ssw0rd9000",
	} {
		assert.True(t, policy.IsValid(password), "expected %q to pass", password)
	}
}

func TestPasswordPolicyRejectsWeakPasswords(t *testing.T) {
	policy := authflow.DefaultPasswordPolicy()

	cases := map[string]string{
		"short":        "Ab1!",
		"no uppercase": "abcdef1!",
		"no digit":     "Abcdefg!",
		"no special":   "Abcdefg1",
		"only letters": "abcdefgh",
		"only digits":  "12345678",
	}

	for name, password := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, policy.IsValid(password))
		})
	}
}

func TestPasswordPolicyReportsAllFailures(t *testing.T) {
	policy := authflow.DefaultPasswordPolicy()

	err := policy.Validate("abc")
	require.Error(t, err)

	// the single message carries every unmet requirement
	assert.Contains(t, err.Error(), "at least 8 characters")
	assert.Contains(t, err.Error(), "an uppercase letter")
	assert.Contains(t, err.Error(), "a digit")
	assert.Contains(t, err.Error(), "a special character")
}

func TestPasswordPolicyEmptyPassword(t *testing.T) {
	policy := authflow.DefaultPasswordPolicy()

	err := policy.Validate("")
	require.Error(t, err)
	assert.ErrorIs(t, err, authflow.ErrNoEmptyString)
}

func TestValidateStringEquals(t *testing.T) {
	rule := authflow.ValidateStringEquals("expected")

	assert.NoError(t, rule("expected"))
	assert.Error(t, rule("different"))
}
