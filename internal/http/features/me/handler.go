package me

import (
	"net/http"

	"github.com/medira/clinic-server/internal/http/middleware"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/domain"
)

// Handler handles the signed-in user's profile endpoint.
type Handler struct{}

// NewHandler creates a new me handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ProfileResponse is the signed-in principal rendered for the client.
type ProfileResponse struct {
	UserID     string             `json:"user_id"`
	Name       string             `json:"name"`
	Role       string             `json:"role"`
	Doctor     *DoctorProfile     `json:"doctor,omitempty"`
	Pharmacist *PharmacistProfile `json:"pharmacist,omitempty"`
}

// DoctorProfile is the doctor-specific part of the profile response.
type DoctorProfile struct {
	Specialization  string  `json:"specialization"`
	ConsultationFee int64   `json:"consultation_fee"`
	RoomNumber      *string `json:"room_number,omitempty"`
}

// PharmacistProfile is the pharmacist-specific part of the profile
// response.
type PharmacistProfile struct {
	LicenseNo string `json:"license_no"`
}

// Get returns the signed-in user's profile.
// GET /v1/me
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	httputil.JSON(w, http.StatusOK, renderProfile(principal))
}

func renderProfile(p *domain.Principal) ProfileResponse {
	resp := ProfileResponse{
		UserID: p.UserID.String(),
		Name:   p.Name,
		Role:   string(p.Role),
	}
	if p.Doctor != nil {
		resp.Doctor = &DoctorProfile{
			Specialization:  p.Doctor.Specialization,
			ConsultationFee: p.Doctor.ConsultationFee,
			RoomNumber:      p.Doctor.RoomNumber,
		}
	}
	if p.Pharmacist != nil {
		resp.Pharmacist = &PharmacistProfile{
			LicenseNo: p.Pharmacist.LicenseNo,
		}
	}
	return resp
}
