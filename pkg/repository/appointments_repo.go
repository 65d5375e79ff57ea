package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/medira/clinic-server/pkg/domain"
)

// AppointmentsRepository handles appointment persistence.
type AppointmentsRepository struct {
	db *sql.DB
}

// NewAppointmentsRepository creates a new appointments repository.
func NewAppointmentsRepository(db *sql.DB) *AppointmentsRepository {
	return &AppointmentsRepository{db: db}
}

const appointmentColumns = `
	id, doctor_id, patient_id, scheduled_at, reason, status, created_at, updated_at
`

func scanAppointment(row interface{ Scan(...any) error }) (*domain.Appointment, error) {
	a := &domain.Appointment{}
	err := row.Scan(
		&a.ID, &a.DoctorID, &a.PatientID, &a.ScheduledAt,
		&a.Reason, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create books an appointment. A unique index on (doctor_id,
// scheduled_at) for open appointments enforces one booking per slot;
// a conflict surfaces as ErrSlotTaken.
func (r *AppointmentsRepository) Create(ctx context.Context, a *domain.Appointment) error {
	query := `
		INSERT INTO appointments (id, doctor_id, patient_id, scheduled_at, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.DoctorID, a.PatientID, a.ScheduledAt,
		a.Reason, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return domain.ErrSlotTaken
	}
	return err
}

// GetByID retrieves an appointment by ID.
func (r *AppointmentsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointment(r.db.QueryRowContext(ctx, query, id))
}

// ListByDoctorDay returns a doctor's appointments for one calendar
// day, ordered by slot time.
func (r *AppointmentsRepository) ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]*domain.Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at
	`
	return r.list(ctx, query, doctorID, start, end)
}

// ListByPatient returns a patient's appointments, newest first.
func (r *AppointmentsRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*domain.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		ORDER BY scheduled_at DESC
	`
	return r.list(ctx, query, patientID)
}

// UpdateStatus transitions an open appointment to completed or
// cancelled. Closed appointments are not reopened.
func (r *AppointmentsRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, status, domain.AppointmentScheduled)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrAppointmentClosed
	}
	return nil
}

func (r *AppointmentsRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []*domain.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}
