package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// BookingLookup answers the booking invariant queries.
type BookingLookup interface {
	HasActiveForPatientOnDay(ctx context.Context, doctorID, patientID uuid.UUID, date calendar.Date) (bool, error)
	IsSlotTaken(ctx context.Context, doctorID uuid.UUID, date calendar.Date, at calendar.TimeOfDay) (bool, error)
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	BookingLookup

	// Occupied clock times for slot generation
	ActiveTimesOnDate(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error)

	// CreatePending inserts a pending record. A storage-level uniqueness
	// violation surfaces as ErrSlotCollision or ErrDuplicatePatientBooking.
	CreatePending(ctx context.Context, req BookingRequest) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus applies the change only while the row still has change.From;
	// otherwise it returns ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, change StatusChange) (*Appointment, error)

	ListForDoctor(ctx context.Context, doctorID uuid.UUID, filter DoctorFilter) ([]Appointment, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, filter PatientFilter) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
