package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
)

// Window is a recurring weekly block during which a doctor accepts bookings.
type Window struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Day       calendar.Weekday
	Start     calendar.TimeOfDay
	End       calendar.TimeOfDay
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWindow is the input for creating a window.
type NewWindow struct {
	DoctorID uuid.UUID
	Day      calendar.Weekday
	Start    calendar.TimeOfDay
	End      calendar.TimeOfDay
}

// AddResult reports a bulk creation: one entry per submitted day either
// created or skipped because an identical window already existed.
type AddResult struct {
	Created int
	Skipped int
	Windows []Window
}
