package domain

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is one booked consultation slot. A doctor holds at most
// one appointment per slot time.
type Appointment struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	PatientID   uuid.UUID
	ScheduledAt time.Time
	Reason      *string
	Status      AppointmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Open reports whether the appointment can still be cancelled or
// completed.
func (a *Appointment) Open() bool {
	return a.Status == AppointmentScheduled
}
