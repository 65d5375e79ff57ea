package auth

import (
	"fmt"
	"unicode"
)

// PasswordPolicy defines password complexity requirements for staff
// accounts.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
}

// DefaultPasswordPolicy returns the policy applied when none is
// configured.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        10,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
	}
}

// ValidatePassword checks if a password meets the policy requirements.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	if p.MinLength > 0 && len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if p.RequireUppercase && !containsClass(password, unicode.IsUpper) {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !containsClass(password, unicode.IsLower) {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if p.RequireNumber && !containsClass(password, unicode.IsDigit) {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}

func containsClass(s string, class func(rune) bool) bool {
	for _, r := range s {
		if class(r) {
			return true
		}
	}
	return false
}
