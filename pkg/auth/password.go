package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// PasswordService handles password authentication for staff accounts.
// Patients sign in with one-time codes and have no password row.
type PasswordService struct {
	db     *sql.DB
	users  *repository.UsersRepository
	creds  *repository.CredentialsRepository
	policy *PasswordPolicy
}

// NewPasswordService creates a new password service.
func NewPasswordService(db *sql.DB, users *repository.UsersRepository, creds *repository.CredentialsRepository, policy *PasswordPolicy) *PasswordService {
	return &PasswordService{db: db, users: users, creds: creds, policy: policy}
}

// CreateStaffUser creates a staff account (admin, doctor, pharmacist)
// with password credentials in one transaction. Role-specific profile
// rows are created by the caller in the same transaction via the
// returned Tx hook.
func (s *PasswordService) CreateStaffUser(ctx context.Context, email, phone, password, name string, role domain.Role, profileTx func(tx *sql.Tx, userID uuid.UUID) error) (*domain.User, error) {
	if role != domain.RoleAdmin && role != domain.RoleDoctor && role != domain.RolePharmacist {
		return nil, fmt.Errorf("role %q is not a staff role", role)
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}
	if s.policy != nil {
		if err := s.policy.ValidatePassword(password); err != nil {
			return nil, err
		}
	}
	name = SanitizeName(name)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}
	exists, err = s.users.ExistsByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     &email,
		Phone:     phone,
		Name:      name,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &domain.UserPassword{
		UserID:            user.ID,
		PasswordHash:      hash,
		PasswordUpdatedAt: now,
	}

	err = repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return err
		}
		if err := s.creds.CreateTx(ctx, tx, cred); err != nil {
			return err
		}
		if profileTx != nil {
			return profileTx(tx, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies email and password, returning the user on
// success. Implements account lockout after 5 failed attempts with a
// 15-minute lockout duration.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	const (
		maxFailedAttempts = 5
		lockoutDuration   = 15 * time.Minute
	)

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.IsLocked() {
		return nil, domain.ErrAccountLocked
	}
	if !user.Active {
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.creds.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, cred.PasswordHash) {
		_ = s.users.IncrementFailedLoginAttempts(ctx, user.ID, lockoutDuration, maxFailedAttempts)
		return nil, domain.ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.users.ResetFailedLoginAttempts(ctx, user.ID)
	}

	return user, nil
}

// ChangePassword changes a user's password.
func (s *PasswordService) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if s.policy != nil {
		if err := s.policy.ValidatePassword(newPassword); err != nil {
			return err
		}
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.creds.Update(ctx, &domain.UserPassword{
		UserID:       userID,
		PasswordHash: hash,
	})
}

// ChangePasswordWithVerify re-verifies the current password before
// changing it. Used for self-service changes by a signed-in user.
func (s *PasswordService) ChangePasswordWithVerify(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	cred, err := s.creds.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}
	if !VerifyPassword(currentPassword, cred.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	return s.ChangePassword(ctx, userID, newPassword)
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	hash, salt, timeCost, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}

func decodeArgon2Hash(encoded string) (hash, salt []byte, timeCost, memory uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, domain.ErrInvalidCredentials
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, err
	}
	if version != argon2.Version {
		return nil, nil, 0, 0, 0, domain.ErrInvalidCredentials
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return nil, nil, 0, 0, 0, err
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, err
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, err
	}
	return hash, salt, timeCost, memory, threads, nil
}
