package otp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/ratelimit"
)

// Handler handles patient one-time-code login endpoints.
type Handler struct {
	logger         *slog.Logger
	otpService     *auth.OTPService
	sessionService *auth.SessionService
	sendLimiter    *ratelimit.Limiter
	verifyLimiter  *ratelimit.Limiter
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new OTP handler.
func NewHandler(
	logger *slog.Logger,
	otpService *auth.OTPService,
	sessionService *auth.SessionService,
	sendLimiter *ratelimit.Limiter,
	verifyLimiter *ratelimit.Limiter,
	cookieConfig httputil.CookieConfig,
) *Handler {
	return &Handler{
		logger:         logger,
		otpService:     otpService,
		sessionService: sessionService,
		sendLimiter:    sendLimiter,
		verifyLimiter:  verifyLimiter,
		cookieConfig:   cookieConfig,
	}
}

// RequestCodeRequest represents a login code request.
type RequestCodeRequest struct {
	Phone string `json:"phone"`
}

// RequestCode handles a patient asking for a login code over WhatsApp.
// POST /v1/auth/otp/request
//
// The response does not reveal whether the phone is registered.
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		httputil.Error(w, http.StatusBadRequest, "phone is required")
		return
	}

	limit := h.sendLimiter.Check(r.Context(), phone)
	if !limit.OK {
		httputil.TooManyRequests(w, limit.ResetIn)
		return
	}

	if err := h.otpService.RequestLoginCode(r.Context(), phone); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPhone):
			httputil.Error(w, http.StatusBadRequest, "invalid phone number")
			return
		case errors.Is(err, domain.ErrPatientNotFound):
			// Fall through to the generic response below so callers
			// cannot tell which phones are registered.
			h.logger.Debug("login code requested for unknown phone")
		default:
			h.logger.Error("failed to send login code", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "failed to send login code")
			return
		}
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"status": "if the number is registered, a code has been sent",
	})
}

// VerifyCodeRequest represents a login code verification.
type VerifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// VerifyCodeResponse is the successful patient login response body.
type VerifyCodeResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// VerifyCode handles code verification and signs the patient in.
// POST /v1/auth/otp/verify
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "phone and code are required")
		return
	}

	limit := h.verifyLimiter.Check(r.Context(), phone)
	if !limit.OK {
		httputil.TooManyRequests(w, limit.ResetIn)
		return
	}

	user, err := h.otpService.VerifyLoginCode(r.Context(), phone, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCodeExpired),
			errors.Is(err, domain.ErrCodeNotFound),
			errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired code")
		case errors.Is(err, domain.ErrUserInactive):
			httputil.Error(w, http.StatusForbidden, "account is deactivated")
		default:
			h.logger.Error("code verification failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	token, err := h.sessionService.IssueSession(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	h.verifyLimiter.Reset(r.Context(), phone)

	httputil.SetSessionCookie(w, token, h.sessionService.SessionTTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, VerifyCodeResponse{
		UserID: user.ID.String(),
		Name:   user.Name,
		Role:   string(user.Role),
	})
}
