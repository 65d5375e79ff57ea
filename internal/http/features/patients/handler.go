package patients

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
)

const searchLimit = 25

// Handler handles patient record endpoints for clinic staff.
type Handler struct {
	logger   *slog.Logger
	patients *repository.PatientsRepository
}

// NewHandler creates a new patients handler.
func NewHandler(logger *slog.Logger, patients *repository.PatientsRepository) *Handler {
	return &Handler{logger: logger, patients: patients}
}

// PatientRequest represents a patient create or update payload.
type PatientRequest struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       *string `json:"email,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Address     *string `json:"address,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// PatientResponse represents a patient record in responses.
type PatientResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       *string `json:"email,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	Address     *string `json:"address,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	HasAccount  bool    `json:"has_account"`
}

// Create registers a new patient record.
// POST /v1/patients
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patient, errMsg := h.patientFromRequest(&req)
	if errMsg != "" {
		httputil.Error(w, http.StatusBadRequest, errMsg)
		return
	}
	patient.ID = uuid.New()

	if err := h.patients.Create(r.Context(), patient); err != nil {
		h.logger.Error("failed to create patient", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create patient")
		return
	}

	httputil.JSON(w, http.StatusCreated, renderPatient(patient))
}

// Get returns one patient record.
// GET /v1/patients/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	patient, err := h.patients.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			httputil.Error(w, http.StatusNotFound, "patient not found")
			return
		}
		h.logger.Error("failed to load patient", "error", err, "patient_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to load patient")
		return
	}

	httputil.JSON(w, http.StatusOK, renderPatient(patient))
}

// Update rewrites a patient's editable fields.
// PUT /v1/patients/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patient, errMsg := h.patientFromRequest(&req)
	if errMsg != "" {
		httputil.Error(w, http.StatusBadRequest, errMsg)
		return
	}
	patient.ID = id

	if err := h.patients.Update(r.Context(), patient); err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			httputil.Error(w, http.StatusNotFound, "patient not found")
			return
		}
		h.logger.Error("failed to update patient", "error", err, "patient_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to update patient")
		return
	}

	httputil.JSON(w, http.StatusOK, renderPatient(patient))
}

// Search finds patients by name or phone fragment.
// GET /v1/patients?q=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		httputil.Error(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	results, err := h.patients.Search(r.Context(), term, searchLimit)
	if err != nil {
		h.logger.Error("patient search failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "search failed")
		return
	}

	out := make([]PatientResponse, 0, len(results))
	for _, p := range results {
		out = append(out, renderPatient(p))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"patients": out})
}

func (h *Handler) patientFromRequest(req *PatientRequest) (*domain.Patient, string) {
	name := auth.SanitizeName(req.Name)
	if name == "" {
		return nil, "name is required"
	}
	phone := strings.TrimSpace(req.Phone)
	if err := auth.ValidatePhone(phone); err != nil {
		return nil, "invalid phone number"
	}
	if req.Email != nil && *req.Email != "" {
		if err := auth.ValidateEmail(*req.Email); err != nil {
			return nil, "invalid email address"
		}
	}

	patient := &domain.Patient{
		Name:    name,
		Phone:   phone,
		Email:   req.Email,
		Address: req.Address,
		Notes:   req.Notes,
	}
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return nil, "date_of_birth must be YYYY-MM-DD"
		}
		patient.DateOfBirth = &dob
	}
	return patient, ""
}

func renderPatient(p *domain.Patient) PatientResponse {
	resp := PatientResponse{
		ID:         p.ID.String(),
		Name:       p.Name,
		Phone:      p.Phone,
		Email:      p.Email,
		Address:    p.Address,
		Notes:      p.Notes,
		HasAccount: p.UserID != nil,
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format("2006-01-02")
		resp.DateOfBirth = &dob
	}
	return resp
}
