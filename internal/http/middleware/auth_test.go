package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
)

type stubSessions struct {
	su *domain.SessionUser
}

func (s *stubSessions) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.SessionUser, error) {
	if s.su == nil || s.su.Session.TokenHash != tokenHash {
		return nil, domain.ErrSessionNotFound
	}
	return s.su, nil
}

func (s *stubSessions) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubProfiles struct{}

func (stubProfiles) DoctorByUserID(ctx context.Context, userID uuid.UUID) (*domain.DoctorProfile, error) {
	return nil, domain.ErrDoctorNotFound
}

func (stubProfiles) PharmacistByUserID(ctx context.Context, userID uuid.UUID) (*domain.PharmacistProfile, error) {
	return nil, domain.ErrUserNotFound
}

func testGate(role domain.Role) (*auth.Gate, string) {
	token := "test-session-token"
	userID := uuid.New()
	sessions := &stubSessions{su: &domain.SessionUser{
		Session: domain.Session{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: auth.HashToken(token),
			ExpiresAt: time.Now().Add(time.Hour),
		},
		UserID: userID,
		Name:   "Test User",
		Role:   role,
		Active: true,
	}}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return auth.NewGate(sessions, stubProfiles{}, logger), token
}

func protectedHandler(t *testing.T, sawPrincipal *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok || principal == nil {
			t.Error("handler reached without principal in context")
		}
		*sawPrincipal = ok
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateAllows(t *testing.T) {
	gate, token := testGate(domain.RoleAdmin)

	var sawPrincipal bool
	handler := Authenticate(gate, domain.RoleAdmin)(protectedHandler(t, &sawPrincipal))

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: httputil.SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !sawPrincipal {
		t.Error("principal missing from request context")
	}
}

func TestAuthenticateMissingCookie(t *testing.T) {
	gate, _ := testGate(domain.RoleAdmin)
	handler := Authenticate(gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateWrongRole(t *testing.T) {
	gate, token := testGate(domain.RolePatient)
	handler := Authenticate(gate, domain.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: httputil.SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// Role mismatch must be indistinguishable from no session.
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateBadToken(t *testing.T) {
	gate, _ := testGate(domain.RoleAdmin)
	handler := Authenticate(gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: httputil.SessionCookieName, Value: "forged"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateNoRolesAcceptsAny(t *testing.T) {
	gate, token := testGate(domain.RolePatient)

	var sawPrincipal bool
	handler := Authenticate(gate)(protectedHandler(t, &sawPrincipal))

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: httputil.SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
