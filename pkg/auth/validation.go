package auth

import (
	"net/mail"
	"regexp"

	"github.com/medira/clinic-server/pkg/domain"
)

const maxEmailLength = 254 // RFC 5321

// E.164-ish: optional +, 8 to 15 digits.
var phoneRegex = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)

// ValidateEmail validates an email address for format and length.
func ValidateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return domain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}

// ValidatePhone validates a phone number in international format.
// One-time codes key on phone, so malformed numbers are rejected
// before any code is issued.
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return domain.ErrInvalidPhone
	}
	return nil
}
