package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/validation"
)

var (
	ErrPastDate                = errors.New("cannot book an appointment for a past date")
	ErrDuplicatePatientBooking = errors.New("patient already has an appointment with this doctor on the selected date")
	ErrSlotCollision           = errors.New("time slot is already booked")
)

func (r BookingRequest) validateFields() error {
	switch {
	case r.DoctorID == uuid.Nil:
		return validation.Required("doctor_id")
	case r.PatientID == uuid.Nil:
		return validation.Required("patient_id")
	case r.Date.IsZero():
		return validation.Required("appointment_date")
	case !r.Time.Valid():
		return validation.Invalid("appointment_time", "must be a time of day")
	}
	return nil
}

// ValidateBooking checks, in order, that the date is not before today, that
// the patient has no active booking with the doctor that day, and that the
// slot is free. The first failure is returned.
func ValidateBooking(ctx context.Context, lookup BookingLookup, req BookingRequest, today calendar.Date) error {
	if req.Date.Before(today) {
		return ErrPastDate
	}

	booked, err := lookup.HasActiveForPatientOnDay(ctx, req.DoctorID, req.PatientID, req.Date)
	if err != nil {
		return fmt.Errorf("check patient booking: %w", err)
	}
	if booked {
		return ErrDuplicatePatientBooking
	}

	taken, err := lookup.IsSlotTaken(ctx, req.DoctorID, req.Date, req.Time)
	if err != nil {
		return fmt.Errorf("check slot collision: %w", err)
	}
	if taken {
		return ErrSlotCollision
	}

	return nil
}
