package admin

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/ratelimit"
	"github.com/medira/clinic-server/pkg/repository"
)

// Handler handles administrative endpoints.
type Handler struct {
	logger          *slog.Logger
	passwordService *auth.PasswordService
	sessionService  *auth.SessionService
	users           *repository.UsersRepository
	profiles        *repository.ProfilesRepository
	limiters        map[string]*ratelimit.Limiter
}

// NewHandler creates a new admin handler.
func NewHandler(
	logger *slog.Logger,
	passwordService *auth.PasswordService,
	sessionService *auth.SessionService,
	users *repository.UsersRepository,
	profiles *repository.ProfilesRepository,
	limiters map[string]*ratelimit.Limiter,
) *Handler {
	return &Handler{
		logger:          logger,
		passwordService: passwordService,
		sessionService:  sessionService,
		users:           users,
		profiles:        profiles,
		limiters:        limiters,
	}
}

// CreateStaffRequest represents a staff account creation. The profile
// section matching the role is required.
type CreateStaffRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // admin, doctor or pharmacist

	Doctor *struct {
		Specialization  string  `json:"specialization"`
		ConsultationFee int64   `json:"consultation_fee"`
		RoomNumber      *string `json:"room_number,omitempty"`
	} `json:"doctor,omitempty"`
	Pharmacist *struct {
		LicenseNo string `json:"license_no"`
	} `json:"pharmacist,omitempty"`
}

// CreateStaff creates a staff user with its role profile in one
// transaction.
// POST /v1/admin/users
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := domain.Role(req.Role)
	switch role {
	case domain.RoleAdmin:
	case domain.RoleDoctor:
		if req.Doctor == nil || req.Doctor.Specialization == "" {
			httputil.Error(w, http.StatusBadRequest, "doctor profile with specialization is required")
			return
		}
	case domain.RolePharmacist:
		if req.Pharmacist == nil || req.Pharmacist.LicenseNo == "" {
			httputil.Error(w, http.StatusBadRequest, "pharmacist profile with license_no is required")
			return
		}
	default:
		httputil.Error(w, http.StatusBadRequest, "role must be admin, doctor or pharmacist")
		return
	}

	profileTx := func(tx *sql.Tx, userID uuid.UUID) error {
		switch role {
		case domain.RoleDoctor:
			return h.profiles.CreateDoctorTx(r.Context(), tx, &domain.DoctorProfile{
				UserID:          userID,
				Specialization:  req.Doctor.Specialization,
				ConsultationFee: req.Doctor.ConsultationFee,
				RoomNumber:      req.Doctor.RoomNumber,
			})
		case domain.RolePharmacist:
			return h.profiles.CreatePharmacistTx(r.Context(), tx, &domain.PharmacistProfile{
				UserID:    userID,
				LicenseNo: req.Pharmacist.LicenseNo,
			})
		}
		return nil
	}

	user, err := h.passwordService.CreateStaffUser(r.Context(), req.Email, req.Phone, req.Password, req.Name, role, profileTx)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			httputil.Error(w, http.StatusConflict, "user already exists")
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.Error(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, domain.ErrInvalidPhone):
			httputil.Error(w, http.StatusBadRequest, "invalid phone number")
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, "password does not meet requirements")
		default:
			h.logger.Error("failed to create staff user", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]string{
		"user_id": user.ID.String(),
		"name":    user.Name,
		"role":    string(user.Role),
	})
}

// Deactivate disables an account and revokes all of its sessions.
// POST /v1/admin/users/{id}/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Activate re-enables a previously deactivated account.
// POST /v1/admin/users/{id}/activate
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.users.SetActive(r.Context(), id, active); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to update user state", "error", err, "user_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	if !active {
		// A deactivated user must not ride out existing sessions.
		if err := h.sessionService.RevokeAllSessions(r.Context(), id); err != nil {
			h.logger.Error("failed to revoke sessions on deactivation", "error", err, "user_id", id)
		}
	}

	status := "deactivated"
	if active {
		status = "activated"
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": status})
}

// ResetLimitRequest names a limiter and the key to clear.
type ResetLimitRequest struct {
	Limiter string `json:"limiter"` // login, otp-send, otp-verify
	Key     string `json:"key"`     // account email or phone
}

// ResetLimit clears one caller's throttle window, e.g. after a locked
// out receptionist calls in.
// POST /v1/admin/ratelimit/reset
func (h *Handler) ResetLimit(w http.ResponseWriter, r *http.Request) {
	var req ResetLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		httputil.Error(w, http.StatusBadRequest, "key is required")
		return
	}

	limiter, ok := h.limiters[req.Limiter]
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "unknown limiter")
		return
	}

	limiter.Reset(r.Context(), req.Key)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
