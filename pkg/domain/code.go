package domain

import (
	"time"

	"github.com/google/uuid"
)

// CodePurpose is what a one-time code authorizes.
type CodePurpose string

const (
	CodePurposeLogin CodePurpose = "login"
)

// OneTimeCode is a short-lived code delivered out of band (WhatsApp)
// and checked once. Only the hash is stored.
type OneTimeCode struct {
	ID         uuid.UUID
	Phone      string
	CodeHash   string
	Purpose    CodePurpose
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	Attempts   int
}

// Usable reports whether the code can still be verified.
func (c *OneTimeCode) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}
