package session

import (
	"log/slog"
	"net/http"

	"github.com/medira/clinic-server/internal/http/middleware"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/auth"
)

// Handler handles session lifecycle endpoints.
type Handler struct {
	logger         *slog.Logger
	sessionService *auth.SessionService
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, sessionService *auth.SessionService, cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{logger: logger, sessionService: sessionService, cookieConfig: cookieConfig}
}

// Logout deletes the current session and clears the cookie.
// POST /v1/auth/logout
//
// Always succeeds: an absent or already-dead session leaves nothing to
// revoke.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := httputil.GetSessionToken(r); ok {
		if err := h.sessionService.RevokeSession(r.Context(), token); err != nil {
			h.logger.Error("failed to revoke session", "error", err)
		}
	}
	httputil.ClearSessionCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// LogoutAll deletes every session owned by the signed-in user.
// POST /v1/auth/logout/all
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.sessionService.RevokeAllSessions(r.Context(), principal.UserID); err != nil {
		h.logger.Error("failed to revoke sessions", "error", err, "user_id", principal.UserID)
		httputil.Error(w, http.StatusInternalServerError, "logout failed")
		return
	}

	httputil.ClearSessionCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "logged out everywhere"})
}
