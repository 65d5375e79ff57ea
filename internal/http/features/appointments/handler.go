package appointments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/medira/clinic-server/internal/http/middleware"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/internal/notification"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
)

// Handler handles appointment scheduling endpoints.
type Handler struct {
	logger       *slog.Logger
	appointments *repository.AppointmentsRepository
	patients     *repository.PatientsRepository
	users        *repository.UsersRepository
	profiles     *repository.ProfilesRepository
	whatsapp     *notification.WhatsAppClient // nil when not configured
	email        *notification.EmailService   // nil when not configured
	sends        *notification.Log
}

// NewHandler creates a new appointments handler.
func NewHandler(
	logger *slog.Logger,
	appointments *repository.AppointmentsRepository,
	patients *repository.PatientsRepository,
	users *repository.UsersRepository,
	profiles *repository.ProfilesRepository,
	whatsapp *notification.WhatsAppClient,
	email *notification.EmailService,
	sends *notification.Log,
) *Handler {
	return &Handler{
		logger:       logger,
		appointments: appointments,
		patients:     patients,
		users:        users,
		profiles:     profiles,
		whatsapp:     whatsapp,
		email:        email,
		sends:        sends,
	}
}

// BookRequest represents an appointment booking.
type BookRequest struct {
	PatientID   string  `json:"patient_id,omitempty"` // staff bookings only
	DoctorID    string  `json:"doctor_id,omitempty"`  // optional for doctors booking themselves
	ScheduledAt string  `json:"scheduled_at"`         // RFC 3339
	Reason      *string `json:"reason,omitempty"`
}

// AppointmentResponse represents an appointment in responses.
type AppointmentResponse struct {
	ID          string  `json:"id"`
	DoctorID    string  `json:"doctor_id"`
	PatientID   string  `json:"patient_id"`
	ScheduledAt string  `json:"scheduled_at"`
	Reason      *string `json:"reason,omitempty"`
	Status      string  `json:"status"`
}

// Book creates an appointment. Patients book for themselves; staff
// name the patient. A doctor booking without doctor_id books their own
// calendar.
// POST /v1/appointments
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "scheduled_at must be RFC 3339")
		return
	}
	if scheduledAt.Before(time.Now()) {
		httputil.Error(w, http.StatusBadRequest, "scheduled_at is in the past")
		return
	}

	patientID, errMsg := h.resolvePatientID(r, principal, req.PatientID)
	if errMsg != "" {
		httputil.Error(w, http.StatusBadRequest, errMsg)
		return
	}

	doctorID, errMsg := resolveDoctorID(principal, req.DoctorID)
	if errMsg != "" {
		httputil.Error(w, http.StatusBadRequest, errMsg)
		return
	}

	var reason *string
	if req.Reason != nil {
		clean := auth.SanitizeText(*req.Reason)
		reason = &clean
	}

	appt := &domain.Appointment{
		ID:          uuid.New(),
		DoctorID:    doctorID,
		PatientID:   patientID,
		ScheduledAt: scheduledAt,
		Reason:      reason,
		Status:      domain.AppointmentScheduled,
	}
	if err := h.appointments.Create(r.Context(), appt); err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			httputil.Error(w, http.StatusConflict, "doctor already has an appointment at this time")
			return
		}
		h.logger.Error("failed to book appointment", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to book appointment")
		return
	}

	httputil.JSON(w, http.StatusCreated, renderAppointment(appt))
}

// DayList returns a doctor's appointments for one day. Doctors default
// to their own calendar.
// GET /v1/appointments/day?doctor_id=&date=YYYY-MM-DD
func (h *Handler) DayList(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	doctorID, errMsg := resolveDoctorID(principal, r.URL.Query().Get("doctor_id"))
	if errMsg != "" {
		httputil.Error(w, http.StatusBadRequest, errMsg)
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	appts, err := h.appointments.ListByDoctorDay(r.Context(), doctorID, day)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "doctor_id", doctorID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"appointments": renderAppointments(appts)})
}

// Mine returns the signed-in patient's appointments.
// GET /v1/appointments/mine
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	patient, err := h.patients.GetByUserID(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			httputil.JSON(w, http.StatusOK, map[string]any{"appointments": []AppointmentResponse{}})
			return
		}
		h.logger.Error("failed to resolve patient", "error", err, "user_id", principal.UserID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	appts, err := h.appointments.ListByPatient(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "patient_id", patient.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"appointments": renderAppointments(appts)})
}

// Cancel cancels a scheduled appointment. Patients may only cancel
// their own.
// POST /v1/appointments/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, domain.AppointmentCancelled)
}

// Complete marks a scheduled appointment completed.
// POST /v1/appointments/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, domain.AppointmentCompleted)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request, status domain.AppointmentStatus) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appt, err := h.appointments.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAppointmentNotFound) {
			httputil.Error(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("failed to load appointment", "error", err, "appointment_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}

	if principal.Role == domain.RolePatient {
		patient, err := h.patients.GetByUserID(r.Context(), principal.UserID)
		if err != nil || patient.ID != appt.PatientID {
			httputil.Error(w, http.StatusNotFound, "appointment not found")
			return
		}
	}

	if err := h.appointments.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, domain.ErrAppointmentClosed) {
			httputil.Error(w, http.StatusConflict, "appointment is already completed or cancelled")
			return
		}
		h.logger.Error("failed to update appointment", "error", err, "appointment_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to update appointment")
		return
	}

	appt.Status = status
	httputil.JSON(w, http.StatusOK, renderAppointment(appt))
}

// Remind sends the patient an appointment reminder over WhatsApp,
// falling back to email.
// POST /v1/appointments/{id}/remind
func (h *Handler) Remind(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appt, err := h.appointments.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAppointmentNotFound) {
			httputil.Error(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("failed to load appointment", "error", err, "appointment_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	if !appt.Open() {
		httputil.Error(w, http.StatusConflict, "appointment is already completed or cancelled")
		return
	}

	patient, err := h.patients.GetByID(r.Context(), appt.PatientID)
	if err != nil {
		h.logger.Error("failed to load patient for reminder", "error", err, "appointment_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to send reminder")
		return
	}
	doctor, err := h.users.GetByID(r.Context(), appt.DoctorID)
	if err != nil {
		h.logger.Error("failed to load doctor for reminder", "error", err, "appointment_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to send reminder")
		return
	}

	var channel, to string
	switch {
	case h.whatsapp != nil:
		channel, to = "whatsapp", patient.Phone
		err = h.whatsapp.SendAppointmentReminder(r.Context(), patient.Phone, patient.Name, doctor.Name, appt.ScheduledAt)
	case h.email != nil && patient.Email != nil:
		channel, to = "email", *patient.Email
		err = h.email.SendAppointmentReminder(*patient.Email, patient.Name, doctor.Name, appt.ScheduledAt)
	default:
		httputil.Error(w, http.StatusServiceUnavailable, "no reminder channel configured")
		return
	}
	if err != nil {
		h.logger.Error("failed to send reminder", "error", err, "appointment_id", id)
		httputil.Error(w, http.StatusBadGateway, "failed to send reminder")
		return
	}
	if h.sends != nil {
		h.sends.Record(notification.SendRecord{Channel: channel, Kind: "reminder", To: to})
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "reminder sent"})
}

// DoctorResponse represents a bookable doctor in listings.
type DoctorResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Specialization  string  `json:"specialization"`
	ConsultationFee int64   `json:"consultation_fee"`
	RoomNumber      *string `json:"room_number,omitempty"`
}

// Doctors lists active doctors so patients can pick one to book.
// GET /v1/doctors
func (h *Handler) Doctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.profiles.ListDoctors(r.Context())
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}

	out := make([]DoctorResponse, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, DoctorResponse{
			ID:              d.UserID.String(),
			Name:            d.Name,
			Specialization:  d.Specialization,
			ConsultationFee: d.ConsultationFee,
			RoomNumber:      d.RoomNumber,
		})
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"doctors": out})
}

// resolvePatientID picks the patient for a booking: the signed-in
// patient's own record, or the patient_id named by staff.
func (h *Handler) resolvePatientID(r *http.Request, principal *domain.Principal, raw string) (uuid.UUID, string) {
	if principal.Role == domain.RolePatient {
		patient, err := h.patients.GetByUserID(r.Context(), principal.UserID)
		if err != nil {
			return uuid.Nil, "no patient record linked to this account"
		}
		return patient.ID, ""
	}

	if raw == "" {
		return uuid.Nil, "patient_id is required"
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "invalid patient_id"
	}
	return id, ""
}

func resolveDoctorID(principal *domain.Principal, raw string) (uuid.UUID, string) {
	if raw == "" {
		if principal.Role == domain.RoleDoctor {
			return principal.UserID, ""
		}
		return uuid.Nil, "doctor_id is required"
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "invalid doctor_id"
	}
	return id, ""
}

func renderAppointment(a *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID.String(),
		DoctorID:    a.DoctorID.String(),
		PatientID:   a.PatientID.String(),
		ScheduledAt: a.ScheduledAt.Format(time.RFC3339),
		Reason:      a.Reason,
		Status:      string(a.Status),
	}
}

func renderAppointments(appts []*domain.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, renderAppointment(a))
	}
	return out
}
