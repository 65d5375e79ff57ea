package totp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/medira/clinic-server/internal/http/middleware"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
)

// Handler handles staff two-step verification management.
type Handler struct {
	logger      *slog.Logger
	totpService *auth.TOTPService
}

// NewHandler creates a new TOTP handler.
func NewHandler(logger *slog.Logger, totpService *auth.TOTPService) *Handler {
	return &Handler{logger: logger, totpService: totpService}
}

// Setup generates a pending secret and returns the provisioning URL
// for an authenticator app.
// POST /v1/auth/totp/setup
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	url, err := h.totpService.Setup(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrTOTPAlreadyEnabled) {
			httputil.Error(w, http.StatusConflict, "two-step verification is already enabled")
			return
		}
		h.logger.Error("TOTP setup failed", "error", err, "user_id", principal.UserID)
		httputil.Error(w, http.StatusInternalServerError, "setup failed")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"otpauth_url": url})
}

type codeRequest struct {
	Code string `json:"code"`
}

// Enable confirms the pending secret with a first valid code.
// POST /v1/auth/totp/enable
func (h *Handler) Enable(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.totpService.Enable(r.Context(), principal.UserID, req.Code); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTOTPCode):
			httputil.Error(w, http.StatusUnauthorized, "invalid verification code")
		case errors.Is(err, domain.ErrTOTPNotEnabled):
			httputil.Error(w, http.StatusConflict, "run setup first")
		default:
			h.logger.Error("TOTP enable failed", "error", err, "user_id", principal.UserID)
			httputil.Error(w, http.StatusInternalServerError, "enable failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "two-step verification enabled"})
}

// Disable turns off two-step verification after a final valid code.
// POST /v1/auth/totp/disable
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.totpService.Disable(r.Context(), principal.UserID, req.Code); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTOTPCode):
			httputil.Error(w, http.StatusUnauthorized, "invalid verification code")
		case errors.Is(err, domain.ErrTOTPNotEnabled):
			httputil.Error(w, http.StatusConflict, "two-step verification is not enabled")
		default:
			h.logger.Error("TOTP disable failed", "error", err, "user_id", principal.UserID)
			httputil.Error(w, http.StatusInternalServerError, "disable failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "two-step verification disabled"})
}
