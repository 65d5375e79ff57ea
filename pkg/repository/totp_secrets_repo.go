package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// TOTPSecret is a staff member's encrypted two-step verification
// secret.
type TOTPSecret struct {
	UserID          uuid.UUID
	SecretEncrypted string
	Confirmed       bool
	CreatedAt       time.Time
}

// TOTPSecretsRepository handles TOTP secret persistence.
type TOTPSecretsRepository struct {
	db *sql.DB
}

// NewTOTPSecretsRepository creates a new TOTP secrets repository.
func NewTOTPSecretsRepository(db *sql.DB) *TOTPSecretsRepository {
	return &TOTPSecretsRepository{db: db}
}

// Upsert stores a pending secret, replacing any existing one.
func (r *TOTPSecretsRepository) Upsert(ctx context.Context, s *TOTPSecret) error {
	query := `
		INSERT INTO totp_secrets (user_id, secret_encrypted, confirmed, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			secret_encrypted = EXCLUDED.secret_encrypted,
			confirmed = EXCLUDED.confirmed,
			created_at = EXCLUDED.created_at
	`
	_, err := r.db.ExecContext(ctx, query, s.UserID, s.SecretEncrypted, s.Confirmed, s.CreatedAt)
	return err
}

// GetByUserID retrieves a user's TOTP secret.
func (r *TOTPSecretsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*TOTPSecret, error) {
	query := `
		SELECT user_id, secret_encrypted, confirmed, created_at
		FROM totp_secrets
		WHERE user_id = $1
	`
	s := &TOTPSecret{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.SecretEncrypted, &s.Confirmed, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTOTPNotEnabled
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Confirm marks a pending secret as confirmed.
func (r *TOTPSecretsRepository) Confirm(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE totp_secrets SET confirmed = TRUE WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// Delete removes a user's TOTP secret.
func (r *TOTPSecretsRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM totp_secrets WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
