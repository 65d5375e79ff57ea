package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod = 30
)

// TOTPConfig contains configuration for staff two-step verification.
type TOTPConfig struct {
	Issuer        string
	EncryptionKey []byte // 32 bytes for AES-256-GCM
}

// TOTPService handles two-step verification for staff accounts.
// Secrets are encrypted at rest.
type TOTPService struct {
	config  TOTPConfig
	secrets *repository.TOTPSecretsRepository
	users   *repository.UsersRepository
}

// NewTOTPService creates a new TOTP service.
func NewTOTPService(config TOTPConfig, secrets *repository.TOTPSecretsRepository, users *repository.UsersRepository) *TOTPService {
	return &TOTPService{config: config, secrets: secrets, users: users}
}

// Setup generates a pending TOTP secret for a user and returns the
// otpauth provisioning URL. The secret stays pending until Enable
// confirms a valid code.
func (s *TOTPService) Setup(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.TOTPEnabled {
		return "", domain.ErrTOTPAlreadyEnabled
	}

	account := user.Phone
	if user.Email != nil {
		account = *user.Email
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.config.Issuer,
		AccountName: account,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", fmt.Errorf("generate TOTP key: %w", err)
	}

	encrypted, err := s.encrypt(key.Secret())
	if err != nil {
		return "", err
	}

	if err := s.secrets.Upsert(ctx, &repository.TOTPSecret{
		UserID:          userID,
		SecretEncrypted: encrypted,
		Confirmed:       false,
		CreatedAt:       timeNow(),
	}); err != nil {
		return "", err
	}

	return key.URL(), nil
}

// Enable confirms a pending secret with a valid code and turns
// two-step verification on.
func (s *TOTPService) Enable(ctx context.Context, userID uuid.UUID, code string) error {
	secret, err := s.secrets.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	plain, err := s.decrypt(secret.SecretEncrypted)
	if err != nil {
		return err
	}
	if !totp.Validate(code, plain) {
		return domain.ErrInvalidTOTPCode
	}

	if err := s.secrets.Confirm(ctx, userID); err != nil {
		return err
	}
	return s.users.SetTOTPEnabled(ctx, userID, true)
}

// Disable turns two-step verification off and removes the secret.
func (s *TOTPService) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	if err := s.Verify(ctx, userID, code); err != nil {
		return err
	}
	if err := s.secrets.Delete(ctx, userID); err != nil {
		return err
	}
	return s.users.SetTOTPEnabled(ctx, userID, false)
}

// Verify checks a code against a user's confirmed secret.
func (s *TOTPService) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	secret, err := s.secrets.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !secret.Confirmed {
		return domain.ErrTOTPNotEnabled
	}

	plain, err := s.decrypt(secret.SecretEncrypted)
	if err != nil {
		return err
	}
	if !totp.Validate(code, plain) {
		return domain.ErrInvalidTOTPCode
	}
	return nil
}

func (s *TOTPService) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.config.EncryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *TOTPService) decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.config.EncryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
