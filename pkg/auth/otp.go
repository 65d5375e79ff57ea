package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
)

const (
	otpDigits      = 6
	otpMaxAttempts = 5

	// DefaultOTPTTL is used when no code lifetime is configured.
	DefaultOTPTTL = 5 * time.Minute
)

// CodeSender delivers a one-time code out of band.
// *notification.WhatsAppClient satisfies it.
type CodeSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// OTPConfig holds one-time code configuration.
type OTPConfig struct {
	CodeTTL time.Duration
}

// OTPService handles one-time-code login for patients.
type OTPService struct {
	config   OTPConfig
	codes    *repository.CodesRepository
	users    *repository.UsersRepository
	patients *repository.PatientsRepository
	sender   CodeSender
}

// NewOTPService creates a new OTP login service.
func NewOTPService(config OTPConfig, codes *repository.CodesRepository, users *repository.UsersRepository, patients *repository.PatientsRepository, sender CodeSender) *OTPService {
	if config.CodeTTL == 0 {
		config.CodeTTL = DefaultOTPTTL
	}
	return &OTPService{
		config:   config,
		codes:    codes,
		users:    users,
		patients: patients,
		sender:   sender,
	}
}

// RequestLoginCode issues a login code for a registered patient phone
// and delivers it over WhatsApp. Unknown phones are rejected before
// any message is sent.
func (s *OTPService) RequestLoginCode(ctx context.Context, phone string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}

	if _, err := s.patients.GetByPhone(ctx, phone); err != nil {
		return err
	}

	code, err := GenerateNumericCode(otpDigits)
	if err != nil {
		return err
	}

	now := timeNow()
	record := &domain.OneTimeCode{
		ID:        uuid.New(),
		Phone:     phone,
		CodeHash:  HashToken(code),
		Purpose:   domain.CodePurposeLogin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.CodeTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return err
	}

	return s.sender.SendOTP(ctx, phone, code)
}

// VerifyLoginCode checks a code and, on success, consumes it and
// returns the patient's portal user, creating and linking one on
// first login.
func (s *OTPService) VerifyLoginCode(ctx context.Context, phone, code string) (*domain.User, error) {
	record, err := s.codes.GetActive(ctx, phone, domain.CodePurposeLogin)
	if err != nil {
		return nil, err
	}

	if !record.Usable(timeNow()) {
		return nil, domain.ErrCodeExpired
	}
	if record.Attempts >= otpMaxAttempts {
		// Burn the code once brute-force territory is reached.
		_ = s.codes.MarkConsumed(ctx, record.ID)
		return nil, domain.ErrCodeExpired
	}

	if !constantTimeCompare([]byte(HashToken(code)), []byte(record.CodeHash)) {
		_ = s.codes.IncrementAttempts(ctx, record.ID)
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.codes.MarkConsumed(ctx, record.ID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if errors.Is(err, domain.ErrUserNotFound) {
		return s.provisionPatientUser(ctx, phone)
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

// provisionPatientUser creates a portal account for a patient record
// on first OTP login and links the two.
func (s *OTPService) provisionPatientUser(ctx context.Context, phone string) (*domain.User, error) {
	patient, err := s.patients.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     patient.Email,
		Phone:     phone,
		Name:      patient.Name,
		Role:      domain.RolePatient,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.patients.LinkUser(ctx, patient.ID, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}
