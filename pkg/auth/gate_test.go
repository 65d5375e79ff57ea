package auth

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

type fakeSessionStore struct {
	byHash    map[string]*domain.SessionUser
	lookupErr error
	deleteErr error
	deleted   []uuid.UUID
}

func (f *fakeSessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.SessionUser, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	su, ok := f.byHash[tokenHash]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return su, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type fakeProfileStore struct {
	doctor        *domain.DoctorProfile
	doctorErr     error
	pharmacist    *domain.PharmacistProfile
	pharmacistErr error
}

func (f *fakeProfileStore) DoctorByUserID(ctx context.Context, userID uuid.UUID) (*domain.DoctorProfile, error) {
	if f.doctorErr != nil {
		return nil, f.doctorErr
	}
	if f.doctor == nil {
		return nil, domain.ErrDoctorNotFound
	}
	return f.doctor, nil
}

func (f *fakeProfileStore) PharmacistByUserID(ctx context.Context, userID uuid.UUID) (*domain.PharmacistProfile, error) {
	if f.pharmacistErr != nil {
		return nil, f.pharmacistErr
	}
	if f.pharmacist == nil {
		return nil, domain.ErrUserNotFound
	}
	return f.pharmacist, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sessionFor(token string, role domain.Role, active bool, expiresAt time.Time) (*fakeSessionStore, *domain.SessionUser) {
	userID := uuid.New()
	su := &domain.SessionUser{
		Session: domain.Session{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: HashToken(token),
			IssuedAt:  expiresAt.Add(-12 * time.Hour),
			ExpiresAt: expiresAt,
		},
		UserID: userID,
		Name:   "Test User",
		Role:   role,
		Active: active,
	}
	store := &fakeSessionStore{byHash: map[string]*domain.SessionUser{su.Session.TokenHash: su}}
	return store, su
}

func TestGateResolve(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	origNow := timeNow
	timeNow = func() time.Time { return now }
	defer func() { timeNow = origNow }()

	t.Run("valid session within allowed roles", func(t *testing.T) {
		store, su := sessionFor("tok", domain.RoleAdmin, true, now.Add(time.Hour))
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		principal, ok := gate.Resolve(context.Background(), "tok", domain.Roles(domain.RoleAdmin))
		if !ok {
			t.Fatal("want principal for a valid session")
		}
		if principal.UserID != su.UserID {
			t.Errorf("UserID = %v, want %v", principal.UserID, su.UserID)
		}
		if principal.Role != domain.RoleAdmin {
			t.Errorf("Role = %v, want admin", principal.Role)
		}
	})

	t.Run("empty token denied without lookup", func(t *testing.T) {
		store := &fakeSessionStore{lookupErr: errors.New("must not be called")}
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "", domain.AnyRole); ok {
			t.Fatal("empty token must be denied")
		}
	})

	t.Run("unknown token denied", func(t *testing.T) {
		store := &fakeSessionStore{byHash: map[string]*domain.SessionUser{}}
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "nope", domain.AnyRole); ok {
			t.Fatal("unknown token must be denied")
		}
	})

	t.Run("expired session denied and deleted", func(t *testing.T) {
		store, su := sessionFor("tok", domain.RoleAdmin, true, now.Add(-time.Minute))
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "tok", domain.AnyRole); ok {
			t.Fatal("expired session must be denied")
		}
		if len(store.deleted) != 1 || store.deleted[0] != su.Session.ID {
			t.Errorf("expired session must be deleted on read, got %v", store.deleted)
		}
	})

	t.Run("expired session denied even when delete fails", func(t *testing.T) {
		store, _ := sessionFor("tok", domain.RoleAdmin, true, now.Add(-time.Minute))
		store.deleteErr = errors.New("db down")
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "tok", domain.AnyRole); ok {
			t.Fatal("failed cleanup must still deny")
		}
	})

	t.Run("session lives exactly until its expiry instant", func(t *testing.T) {
		store, _ := sessionFor("tok", domain.RoleAdmin, true, now)
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "tok", domain.AnyRole); ok {
			t.Fatal("a session expiring exactly now must be denied")
		}
	})

	t.Run("inactive user denied", func(t *testing.T) {
		store, _ := sessionFor("tok", domain.RoleAdmin, false, now.Add(time.Hour))
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "tok", domain.AnyRole); ok {
			t.Fatal("inactive user must be denied")
		}
	})

	t.Run("role outside allowed set denied", func(t *testing.T) {
		store, _ := sessionFor("tok", domain.RolePatient, true, now.Add(time.Hour))
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "tok", domain.Roles(domain.RoleAdmin)); ok {
			t.Fatal("role mismatch must be denied")
		}
	})

	t.Run("any role accepts every valid role", func(t *testing.T) {
		store, _ := sessionFor("tok", domain.RolePatient, true, now.Add(time.Hour))
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "tok", domain.AnyRole); !ok {
			t.Fatal("AnyRole must accept a patient session")
		}
	})

	t.Run("store failure denies", func(t *testing.T) {
		store := &fakeSessionStore{lookupErr: errors.New("connection refused")}
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "tok", domain.AnyRole); ok {
			t.Fatal("transient store failure must deny, not error")
		}
	})

	t.Run("doctor principal carries profile", func(t *testing.T) {
		store, su := sessionFor("tok", domain.RoleDoctor, true, now.Add(time.Hour))
		profiles := &fakeProfileStore{doctor: &domain.DoctorProfile{
			UserID:         su.UserID,
			Specialization: "cardiology",
		}}
		gate := NewGate(store, profiles, quietLogger())

		principal, ok := gate.Resolve(context.Background(), "tok", domain.Roles(domain.RoleDoctor))
		if !ok {
			t.Fatal("want principal")
		}
		if principal.Doctor == nil || principal.Doctor.Specialization != "cardiology" {
			t.Errorf("Doctor profile not attached: %+v", principal.Doctor)
		}
	})

	t.Run("missing doctor profile tolerated", func(t *testing.T) {
		store, _ := sessionFor("tok", domain.RoleDoctor, true, now.Add(time.Hour))
		gate := NewGate(store, &fakeProfileStore{}, quietLogger())

		principal, ok := gate.Resolve(context.Background(), "tok", domain.Roles(domain.RoleDoctor))
		if !ok {
			t.Fatal("missing profile row must not deny")
		}
		if principal.Doctor != nil {
			t.Error("Doctor should be nil when no profile exists")
		}
	})

	t.Run("doctor profile store failure denies", func(t *testing.T) {
		store, _ := sessionFor("tok", domain.RoleDoctor, true, now.Add(time.Hour))
		profiles := &fakeProfileStore{doctorErr: errors.New("connection refused")}
		gate := NewGate(store, profiles, quietLogger())

		if _, ok := gate.Resolve(context.Background(), "tok", domain.Roles(domain.RoleDoctor)); ok {
			t.Fatal("transient profile failure must deny")
		}
	})

	t.Run("pharmacist principal carries profile", func(t *testing.T) {
		store, su := sessionFor("tok", domain.RolePharmacist, true, now.Add(time.Hour))
		profiles := &fakeProfileStore{pharmacist: &domain.PharmacistProfile{
			UserID:    su.UserID,
			LicenseNo: "PH-1234",
		}}
		gate := NewGate(store, profiles, quietLogger())

		principal, ok := gate.Resolve(context.Background(), "tok", domain.Roles(domain.RolePharmacist))
		if !ok {
			t.Fatal("want principal")
		}
		if principal.Pharmacist == nil || principal.Pharmacist.LicenseNo != "PH-1234" {
			t.Errorf("Pharmacist profile not attached: %+v", principal.Pharmacist)
		}
	})
}
