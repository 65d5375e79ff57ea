package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// SessionsRepository handles session persistence.
type SessionsRepository struct {
	db *sql.DB
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *sql.DB) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// Create creates a new session.
func (r *SessionsRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.TokenHash,
		session.IssuedAt, session.ExpiresAt,
	)
	return err
}

// GetByTokenHash retrieves a session by token hash, joined with its
// owning user record. The join gives the authorization gate the
// session and user state in one round trip.
func (r *SessionsRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.SessionUser, error) {
	query := `
		SELECT s.id, s.user_id, s.token_hash, s.issued_at, s.expires_at,
		       u.name, u.role, u.active
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
	`
	su := &domain.SessionUser{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&su.Session.ID, &su.Session.UserID, &su.Session.TokenHash,
		&su.Session.IssuedAt, &su.Session.ExpiresAt,
		&su.Name, &su.Role, &su.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	su.UserID = su.Session.UserID
	return su, nil
}

// Delete removes a session. Deleting an already-deleted session is a
// no-op.
func (r *SessionsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM sessions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteByTokenHash removes a session by token hash (logout).
func (r *SessionsRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM sessions WHERE token_hash = $1`
	_, err := r.db.ExecContext(ctx, query, tokenHash)
	return err
}

// DeleteAllByUserID removes every session owned by a user.
func (r *SessionsRepository) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// DeleteExpired removes all sessions whose lifetime has passed.
// Safe to run concurrently with live traffic.
func (r *SessionsRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < NOW()`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
