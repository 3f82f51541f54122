package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// ActiveStatuses occupy a slot for collision purposes.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func ParseStatus(s string) (AppointmentStatus, bool) {
	switch st := AppointmentStatus(s); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, true
	}
	return "", false
}

func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanTransitionTo reports whether the state machine allows s -> to.
func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Role is the kind of actor acting on an appointment.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return r, true
	}
	return "", false
}

// Actor is a pre-authorized identity resolved by the session layer.
type Actor struct {
	Role Role
	ID   uuid.UUID
}

type Appointment struct {
	ID                 uuid.UUID
	DoctorID           uuid.UUID
	PatientID          uuid.UUID
	Date               calendar.Date
	Time               calendar.TimeOfDay
	Status             AppointmentStatus
	Reason             string
	Notes              string
	CancelledBy        *Role
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// owns reports whether the actor may act on the appointment.
func (a *Appointment) owns(actor Actor) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleDoctor:
		return a.DoctorID == actor.ID
	case RolePatient:
		return a.PatientID == actor.ID
	}
	return false
}

type BookingRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      calendar.Date
	Time      calendar.TimeOfDay
	Reason    string
}

// StatusChange is a compare-and-set status update.
type StatusChange struct {
	ID                 uuid.UUID
	From               AppointmentStatus
	To                 AppointmentStatus
	CancelledBy        *Role
	CancellationReason string
}

type ListOrder int

const (
	// OrderNewestFirst sorts by date desc, then time desc.
	OrderNewestFirst ListOrder = iota
	// OrderTimeAsc sorts by date asc, then time asc.
	OrderTimeAsc
)

type DoctorFilter struct {
	Status           *AppointmentStatus
	From             *calendar.Date // inclusive
	To               *calendar.Date // inclusive
	ExcludeCancelled bool
	Order            ListOrder
}

type PatientFilter struct {
	From  *calendar.Date
	Order ListOrder
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
