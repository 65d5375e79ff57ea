package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// CodesRepository handles one-time code persistence.
type CodesRepository struct {
	db *sql.DB
}

// NewCodesRepository creates a new one-time codes repository.
func NewCodesRepository(db *sql.DB) *CodesRepository {
	return &CodesRepository{db: db}
}

// Create stores a new one-time code, replacing any active code for
// the same phone and purpose so only the latest one verifies.
func (r *CodesRepository) Create(ctx context.Context, code *domain.OneTimeCode) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		del := `
			DELETE FROM one_time_codes
			WHERE phone = $1 AND purpose = $2 AND consumed_at IS NULL
		`
		if _, err := tx.ExecContext(ctx, del, code.Phone, code.Purpose); err != nil {
			return err
		}
		ins := `
			INSERT INTO one_time_codes (id, phone, code_hash, purpose, created_at, expires_at, attempts)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.ExecContext(ctx, ins,
			code.ID, code.Phone, code.CodeHash, code.Purpose,
			code.CreatedAt, code.ExpiresAt, code.Attempts,
		)
		return err
	})
}

// GetActive retrieves the unconsumed code for a phone and purpose.
func (r *CodesRepository) GetActive(ctx context.Context, phone string, purpose domain.CodePurpose) (*domain.OneTimeCode, error) {
	query := `
		SELECT id, phone, code_hash, purpose, created_at, expires_at, consumed_at, attempts
		FROM one_time_codes
		WHERE phone = $1 AND purpose = $2 AND consumed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	code := &domain.OneTimeCode{}
	err := r.db.QueryRowContext(ctx, query, phone, purpose).Scan(
		&code.ID, &code.Phone, &code.CodeHash, &code.Purpose,
		&code.CreatedAt, &code.ExpiresAt, &code.ConsumedAt, &code.Attempts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return code, nil
}

// MarkConsumed consumes a code. Only an unconsumed code transitions.
func (r *CodesRepository) MarkConsumed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE one_time_codes
		SET consumed_at = NOW()
		WHERE id = $1 AND consumed_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCodeConsumed
	}
	return nil
}

// IncrementAttempts bumps the failed-verification counter.
func (r *CodesRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE one_time_codes SET attempts = attempts + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteExpiredOrConsumed removes codes that are past their expiry or
// already used. Safe to run concurrently with live traffic.
func (r *CodesRepository) DeleteExpiredOrConsumed(ctx context.Context) (int64, error) {
	query := `DELETE FROM one_time_codes WHERE expires_at < NOW() OR consumed_at IS NOT NULL`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
