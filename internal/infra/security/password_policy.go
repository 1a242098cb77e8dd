package security

import (
	"fmt"

	"github.com/arklim/signup-iam/internal/core/port"
)

const defaultMinPasswordLength = 8

// PasswordPolicyConfig tunes the service password policy.
type PasswordPolicyConfig struct {
	MinLength        int
	MinStrengthScore int
}

// DefaultPasswordPolicyConfig returns the baseline policy: eight characters, all four character classes, no zxcvbn gate.
func DefaultPasswordPolicyConfig() PasswordPolicyConfig {
	return PasswordPolicyConfig{MinLength: defaultMinPasswordLength}
}

// DefaultPasswordValidator returns the built-in validator enforcing length and character class checks.
func DefaultPasswordValidator() *PasswordValidator {
	return newPolicyValidator(DefaultPasswordPolicyConfig(), port.PasswordContext{})
}

func newPolicyValidator(cfg PasswordPolicyConfig, ctx port.PasswordContext) *PasswordValidator {
	minLength := cfg.MinLength
	if minLength < defaultMinPasswordLength {
		minLength = defaultMinPasswordLength
	}

	inputs := make([]string, 0, 3)
	for _, input := range []string{ctx.Username, ctx.Email, ctx.Phone} {
		if input != "" {
			inputs = append(inputs, input)
		}
	}

	return NewPasswordValidator(
		MinLengthRule(minLength),
		RequireUppercaseRule(),
		RequireLowercaseRule(),
		RequireDigitRule(),
		RequireSpecialRule(),
		RequireDifferentFromUsername(ctx.Username),
		RequireDifferentFrom(ctx.Current),
		RequirePasswordStrengthRule(cfg.MinStrengthScore, inputs...),
	)
}

// PasswordPolicy adapts the password validator to the port-level policy interface.
type PasswordPolicy struct {
	cfg PasswordPolicyConfig
}

// NewPasswordPolicy builds a policy that accounts for contextual user inputs when validating passwords.
func NewPasswordPolicy(cfg PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{cfg: cfg}
}

// Validate applies the configured rules to ensure the password meets policy requirements.
func (p *PasswordPolicy) Validate(password string, ctx port.PasswordContext) error {
	if p == nil {
		return fmt.Errorf("password policy not configured")
	}
	return newPolicyValidator(p.cfg, ctx).Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
