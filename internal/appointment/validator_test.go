package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
)

type stubLookup struct {
	patientBooked bool
	slotTaken     bool
	err           error
	slotChecked   bool
}

func (s *stubLookup) HasActiveForPatientOnDay(context.Context, uuid.UUID, uuid.UUID, calendar.Date) (bool, error) {
	return s.patientBooked, s.err
}

func (s *stubLookup) IsSlotTaken(context.Context, uuid.UUID, calendar.Date, calendar.TimeOfDay) (bool, error) {
	s.slotChecked = true
	return s.slotTaken, nil
}

func TestValidateBooking(t *testing.T) {
	today := calendar.Date{Year: 2025, Month: time.June, Day: 1}
	req := BookingRequest{
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      today,
		Time:      calendar.Clock(10, 0),
	}
	yesterday := req
	yesterday.Date = today.AddDays(-1)

	tests := []struct {
		name   string
		req    BookingRequest
		lookup *stubLookup
		want   error
	}{
		{"today is bookable", req, &stubLookup{}, nil},
		{"yesterday is past", yesterday, &stubLookup{}, ErrPastDate},
		{"past date wins over other failures", yesterday, &stubLookup{patientBooked: true, slotTaken: true}, ErrPastDate},
		{"duplicate patient booking", req, &stubLookup{patientBooked: true}, ErrDuplicatePatientBooking},
		{"duplicate patient wins over collision", req, &stubLookup{patientBooked: true, slotTaken: true}, ErrDuplicatePatientBooking},
		{"slot collision", req, &stubLookup{slotTaken: true}, ErrSlotCollision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBooking(context.Background(), tt.lookup, tt.req, today)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateBookingStopsOnLookupError(t *testing.T) {
	today := calendar.Date{Year: 2025, Month: time.June, Day: 1}
	boom := errors.New("db down")
	lookup := &stubLookup{err: boom}

	err := ValidateBooking(context.Background(), lookup, BookingRequest{
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      today,
		Time:      calendar.Clock(9, 0),
	}, today)

	assert.ErrorIs(t, err, boom)
	assert.False(t, lookup.slotChecked)
}
