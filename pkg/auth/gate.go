package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// SessionStore is the session lookup surface the gate consumes.
// *repository.SessionsRepository satisfies it.
type SessionStore interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.SessionUser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProfileStore provides role-specific profile enrichment.
// *repository.ProfilesRepository satisfies it.
type ProfileStore interface {
	DoctorByUserID(ctx context.Context, userID uuid.UUID) (*domain.DoctorProfile, error)
	PharmacistByUserID(ctx context.Context, userID uuid.UUID) (*domain.PharmacistProfile, error)
}

// Gate answers "is this request authenticated, and as whom?" with a
// role constraint. It is fail-closed: every denial reason, including
// transient store failures, collapses into the same negative result
// so callers cannot distinguish "not logged in" from "not allowed".
type Gate struct {
	sessions SessionStore
	profiles ProfileStore
	logger   *slog.Logger
}

// NewGate creates a session authorization gate.
func NewGate(sessions SessionStore, profiles ProfileStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{sessions: sessions, profiles: profiles, logger: logger}
}

// Resolve maps a session token to a principal constrained to the
// allowed roles. It returns (nil, false) for a missing or expired
// session, an inactive user, a role outside the allowed set, or any
// store failure. An expired session is deleted as a side effect.
//
// Denial reasons are logged at debug level only; the external
// contract stays single-valued.
func (g *Gate) Resolve(ctx context.Context, token string, allowed domain.RoleSet) (*domain.Principal, bool) {
	if token == "" {
		return nil, false
	}

	su, err := g.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			g.logger.Debug("session lookup failed, denying", "error", err)
		}
		return nil, false
	}

	if su.Session.Expired(timeNow()) {
		// Cleanup on read. A failed delete still denies; the sweep
		// will catch the row later.
		if err := g.sessions.Delete(ctx, su.Session.ID); err != nil {
			g.logger.Debug("expired session cleanup failed", "error", err, "session_id", su.Session.ID)
		}
		return nil, false
	}

	if !su.Active {
		g.logger.Debug("session for inactive user denied", "user_id", su.UserID)
		return nil, false
	}

	if !allowed.Contains(su.Role) {
		g.logger.Debug("role not allowed for route", "user_id", su.UserID, "role", su.Role)
		return nil, false
	}

	principal := &domain.Principal{
		UserID: su.UserID,
		Name:   su.Name,
		Role:   su.Role,
	}

	switch su.Role {
	case domain.RoleDoctor:
		profile, err := g.profiles.DoctorByUserID(ctx, su.UserID)
		if err != nil {
			if !errors.Is(err, domain.ErrDoctorNotFound) {
				g.logger.Debug("doctor profile lookup failed, denying", "error", err)
				return nil, false
			}
		} else {
			principal.Doctor = profile
		}
	case domain.RolePharmacist:
		profile, err := g.profiles.PharmacistByUserID(ctx, su.UserID)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				g.logger.Debug("pharmacist profile lookup failed, denying", "error", err)
				return nil, false
			}
		} else {
			principal.Pharmacist = profile
		}
	}

	return principal, true
}
