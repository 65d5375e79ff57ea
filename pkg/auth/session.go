package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
)

const (
	sessionTokenLen = 32

	// DefaultSessionTTL is used when no TTL is configured.
	DefaultSessionTTL = 12 * time.Hour
)

// SessionConfig holds session issuance configuration.
type SessionConfig struct {
	SessionTTL time.Duration
}

// SessionService issues and revokes sessions. Session checks belong
// to the Gate; this service only mutates.
type SessionService struct {
	config   SessionConfig
	sessions *repository.SessionsRepository
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, sessions *repository.SessionsRepository) *SessionService {
	if config.SessionTTL == 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	return &SessionService{config: config, sessions: sessions}
}

// SessionTTL returns the configured session lifetime.
func (s *SessionService) SessionTTL() time.Duration {
	return s.config.SessionTTL
}

// IssueSession creates a session for a user and returns the opaque
// token. The token is stored hashed; the raw value exists only in the
// caller's cookie.
func (s *SessionService) IssueSession(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := GenerateToken(sessionTokenLen)
	if err != nil {
		return "", err
	}

	now := timeNow()
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashToken(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// RevokeSession deletes the session behind a token (logout).
func (s *SessionService) RevokeSession(ctx context.Context, token string) error {
	return s.sessions.DeleteByTokenHash(ctx, HashToken(token))
}

// RevokeAllSessions deletes every session owned by a user.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteAllByUserID(ctx, userID)
}
