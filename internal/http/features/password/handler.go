package password

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medira/clinic-server/internal/http/middleware"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/ratelimit"
)

// Handler handles staff password authentication endpoints.
type Handler struct {
	logger          *slog.Logger
	passwordService *auth.PasswordService
	sessionService  *auth.SessionService
	totpService     *auth.TOTPService // nil when two-step verification is not configured
	loginLimiter    *ratelimit.Limiter
	cookieConfig    httputil.CookieConfig
}

// NewHandler creates a new password handler.
func NewHandler(
	logger *slog.Logger,
	passwordService *auth.PasswordService,
	sessionService *auth.SessionService,
	totpService *auth.TOTPService,
	loginLimiter *ratelimit.Limiter,
	cookieConfig httputil.CookieConfig,
) *Handler {
	return &Handler{
		logger:          logger,
		passwordService: passwordService,
		sessionService:  sessionService,
		totpService:     totpService,
		loginLimiter:    loginLimiter,
		cookieConfig:    cookieConfig,
	}
}

// LoginRequest represents a staff login request. TOTPCode is required
// only for accounts with two-step verification enabled.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

// LoginResponse is the successful login response body.
type LoginResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Login handles staff login.
// POST /v1/auth/login
//
// The session is delivered as an HttpOnly cookie; the body carries no
// token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	// Throttle per account, not per IP: a clinic front desk shares one
	// address.
	limit := h.loginLimiter.Check(r.Context(), email)
	if !limit.OK {
		httputil.TooManyRequests(w, limit.ResetIn)
		return
	}

	user, err := h.passwordService.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountLocked):
			httputil.Error(w, http.StatusForbidden, "account locked, try again later")
		case errors.Is(err, domain.ErrUserInactive):
			httputil.Error(w, http.StatusForbidden, "account is deactivated")
		case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUserNotFound):
			httputil.Error(w, http.StatusUnauthorized, "invalid credentials")
		default:
			h.logger.Error("login failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	if user.TOTPEnabled {
		if h.totpService == nil {
			h.logger.Error("user has TOTP enabled but TOTP is not configured", "user_id", user.ID)
			httputil.Error(w, http.StatusInternalServerError, "login failed")
			return
		}
		if req.TOTPCode == "" {
			httputil.JSON(w, http.StatusUnauthorized, map[string]any{
				"error":         "verification code required",
				"totp_required": true,
			})
			return
		}
		if err := h.totpService.Verify(r.Context(), user.ID, req.TOTPCode); err != nil {
			httputil.Error(w, http.StatusUnauthorized, "invalid verification code")
			return
		}
	}

	token, err := h.sessionService.IssueSession(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	// A successful login clears the account's throttle window.
	h.loginLimiter.Reset(r.Context(), email)

	httputil.SetSessionCookie(w, token, h.sessionService.SessionTTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, LoginResponse{
		UserID: user.ID.String(),
		Name:   user.Name,
		Role:   string(user.Role),
	})
}

// ChangePasswordRequest represents a password change request.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles a staff password change for the signed-in
// user. The current password is re-verified first.
// POST /v1/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "current and new passwords are required")
		return
	}

	err := h.passwordService.ChangePasswordWithVerify(r.Context(), principal.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "current password is incorrect")
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, "password does not meet requirements")
		default:
			h.logger.Error("password change failed", "error", err, "user_id", principal.UserID)
			httputil.Error(w, http.StatusInternalServerError, "password change failed")
		}
		return
	}

	// Changing the password invalidates every other session.
	if err := h.sessionService.RevokeAllSessions(r.Context(), principal.UserID); err != nil {
		h.logger.Error("failed to revoke sessions after password change", "error", err, "user_id", principal.UserID)
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}
