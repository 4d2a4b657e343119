package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// DefaultPasswordMinLength is the minimum password length when none is configured
const DefaultPasswordMinLength = 6

// MaxPasswordBytes is the longest password bcrypt will hash
const MaxPasswordBytes = 72

// PasswordPolicy enforces a minimum length in characters and the bcrypt
// limit of MaxPasswordBytes. There are no digit, case or symbol requirements.
type PasswordPolicy struct {
	MinLength int
}

// NewPasswordPolicy returns a policy, defaulting non positive lengths
func NewPasswordPolicy(minLength int) PasswordPolicy {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	return PasswordPolicy{MinLength: minLength}
}

// Rules returns the validation rules for a password field
func (p PasswordPolicy) Rules() []validation.Rule {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(minLength, 0),
		validation.Length(0, MaxPasswordBytes).Error("must be no more than 72 bytes"),
	}
}

// Validate checks password against the policy
func (p PasswordPolicy) Validate(password string) error {
	return validation.Validate(password, p.Rules()...)
}
