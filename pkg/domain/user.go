package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account that can sign in: clinic staff or a
// registered patient.
type User struct {
	ID                  uuid.UUID
	Email               *string
	Phone               string
	Name                string
	Role                Role
	Active              bool
	TOTPEnabled         bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked returns true if the account is currently locked.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// UserPassword stores password credentials separately from the user
// record. Patients authenticating via one-time codes have no row here.
type UserPassword struct {
	UserID            uuid.UUID
	PasswordHash      string
	PasswordUpdatedAt time.Time
}

// DoctorProfile holds the role-specific data attached to a doctor
// principal.
type DoctorProfile struct {
	UserID          uuid.UUID
	Specialization  string
	ConsultationFee int64 // smallest currency unit
	RoomNumber      *string
}

// PharmacistProfile holds the role-specific data attached to a
// pharmacist principal.
type PharmacistProfile struct {
	UserID    uuid.UUID
	LicenseNo string
}

// Doctor is a doctor user joined with their profile, for patient-facing
// listings.
type Doctor struct {
	UserID          uuid.UUID
	Name            string
	Specialization  string
	ConsultationFee int64 // smallest currency unit
	RoomNumber      *string
}
