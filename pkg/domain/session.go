package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one authenticated browser or device login. The
// opaque bearer token lives in a cookie; only its hash is stored.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session's lifetime has passed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionUser is a session row joined with its owning user record,
// the shape the authorization gate works from.
type SessionUser struct {
	Session Session
	UserID  uuid.UUID
	Name    string
	Role    Role
	Active  bool
}

// Principal is the authorization result: who the request is acting
// as, with role-specific profile data attached when the role matches.
type Principal struct {
	UserID     uuid.UUID
	Name       string
	Role       Role
	Doctor     *DoctorProfile
	Pharmacist *PharmacistProfile
}
