package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/history"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
	"github.com/hackgods/clinic-appointment-booking/internal/validation"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
)

var (
	ErrSlotBeingBooked         = errors.New("this doctor's day is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

var tracer = otel.Tracer("clinic/appointment")

// HistoryWriter records the medical history update attached to a completed visit.
type HistoryWriter interface {
	Upsert(ctx context.Context, patientID, doctorID uuid.UUID, update history.Update) (*history.Record, error)
}

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	history HistoryWriter
	logger  *zap.Logger
	metrics *metrics.BookingMetrics
	now     func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, hw HistoryWriter, logger *zap.Logger, m *metrics.BookingMetrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		history: hw,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// WithClock replaces the source of "today". It returns s for chaining.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today is the server's local calendar date.
func (s *Service) Today() calendar.Date {
	return calendar.DateOf(s.now())
}

// Book validates and creates a pending appointment. Validation and insert run
// under a per doctor-day lock; the storage unique indexes back it up when the
// lock expires mid-flight.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.book")
	defer span.End()

	if err := req.validateFields(); err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("doctor_id", req.DoctorID.String()),
		attribute.String("appointment_date", req.Date.String()),
		attribute.String("appointment_time", req.Time.String()),
	)

	var created *Appointment
	today := s.Today()
	key := redisclient.DoctorDayKey(req.DoctorID, req.Date.String())

	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		if err := ValidateBooking(lockCtx, s.repo, req, today); err != nil {
			return err
		}

		appt, err := s.repo.CreatePending(lockCtx, req)
		if err != nil {
			return err
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":        req.DoctorID.String(),
			"patient_id":       req.PatientID.String(),
			"appointment_date": req.Date.String(),
			"appointment_time": req.Time.String(),
		})
		return nil
	})

	if err != nil {
		s.metrics.ObserveBooking(bookingOutcome(err))
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		if isBookingRejection(err) {
			s.logger.Info("booking rejected",
				zap.String("doctor_id", req.DoctorID.String()),
				zap.String("patient_id", req.PatientID.String()),
				zap.Stringer("date", req.Date),
				zap.Stringer("time", req.Time),
				zap.Error(err),
			)
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("book appointment: %w", err)
	}

	s.metrics.ObserveBooking("created")
	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", created.DoctorID.String()),
		zap.String("patient_id", created.PatientID.String()),
		zap.Stringer("date", created.Date),
		zap.Stringer("time", created.Time),
	)

	return created, nil
}

func isBookingRejection(err error) bool {
	return errors.Is(err, ErrPastDate) ||
		errors.Is(err, ErrDuplicatePatientBooking) ||
		errors.Is(err, ErrSlotCollision)
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, ErrPastDate):
		return "past_date"
	case errors.Is(err, ErrDuplicatePatientBooking):
		return "duplicate_patient_booking"
	case errors.Is(err, ErrSlotCollision):
		return "slot_collision"
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return "lock_contention"
	default:
		return "error"
	}
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id, doctorID uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, Actor{Role: RoleDoctor, ID: doctorID}, StatusConfirmed, "", EventAppointmentConfirmed)
}

// Cancel sets the appointment to cancelled on behalf of actor. Patients and
// doctors may only cancel their own appointments.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor, reason string) (*Appointment, error) {
	return s.transition(ctx, id, actor, StatusCancelled, reason, EventAppointmentCancelled)
}

func (s *Service) MarkNoShow(ctx context.Context, id, doctorID uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, Actor{Role: RoleDoctor, ID: doctorID}, StatusNoShow, "", EventAppointmentNoShow)
}

// Complete finalizes a confirmed visit, saving the optional medical history
// update for the patient first.
func (s *Service) Complete(ctx context.Context, id, doctorID uuid.UUID, update *history.Update) (*Appointment, error) {
	actor := Actor{Role: RoleDoctor, ID: doctorID}
	if update == nil {
		return s.transition(ctx, id, actor, StatusCompleted, "", EventAppointmentCompleted)
	}

	appt, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(StatusCompleted) {
		s.metrics.ObserveTransition(string(StatusCompleted), false)
		return nil, ErrInvalidStatusTransition
	}
	if s.history == nil {
		return nil, errors.New("complete appointment: medical history store not configured")
	}
	if _, err := s.history.Upsert(ctx, appt.PatientID, doctorID, *update); err != nil {
		return nil, fmt.Errorf("save medical history: %w", err)
	}

	return s.transition(ctx, id, actor, StatusCompleted, "", EventAppointmentCompleted)
}

func (s *Service) loadOwned(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !appt.owns(actor) {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, actor Actor, to AppointmentStatus, reason, event string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.transition")
	defer span.End()
	span.SetAttributes(attribute.String("appointment_id", id.String()), attribute.String("to", string(to)))

	appt, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if !appt.Status.CanTransitionTo(to) {
		s.metrics.ObserveTransition(string(to), false)
		s.logger.Info("status transition rejected",
			zap.String("appointment_id", id.String()),
			zap.String("from", string(appt.Status)),
			zap.String("to", string(to)),
		)
		return nil, ErrInvalidStatusTransition
	}

	change := StatusChange{ID: appt.ID, From: appt.Status, To: to}
	if to == StatusCancelled {
		role := actor.Role
		change.CancelledBy = &role
		change.CancellationReason = reason
	}

	updated, err := s.repo.UpdateStatus(ctx, change)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status moved underneath us.
			s.metrics.ObserveTransition(string(to), false)
			return nil, ErrInvalidStatusTransition
		}
		span.RecordError(err)
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.metrics.ObserveTransition(string(to), true)
	payload := map[string]any{
		"from":  string(appt.Status),
		"to":    string(to),
		"actor": string(actor.Role),
	}
	if reason != "" {
		payload["reason"] = reason
	}
	s.logEvent(ctx, updated.ID, event, payload)

	return updated, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}

// GetAppointment returns the appointment when actor may see it.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return s.loadOwned(ctx, id, actor)
}

// BookedTimes lists the clock times occupied by active bookings on date.
func (s *Service) BookedTimes(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	times, err := s.repo.ActiveTimesOnDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("booked times: %w", err)
	}
	return times, nil
}

// ListForDoctor defaults to newest first; filter.Order switches to time ascending.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, filter DoctorFilter) ([]Appointment, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, validation.Invalid("to", "must not be before from")
	}
	appointments, err := s.repo.ListForDoctor(ctx, doctorID, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appointments, nil
}

// TodayForDoctor is the day dashboard: today's appointments without
// cancelled ones, earliest first.
func (s *Service) TodayForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	today := s.Today()
	return s.ListForDoctor(ctx, doctorID, DoctorFilter{
		From:             &today,
		To:               &today,
		ExcludeCancelled: true,
		Order:            OrderTimeAsc,
	})
}

// ListForPatient returns every appointment of the patient, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	appointments, err := s.repo.ListForPatient(ctx, patientID, PatientFilter{Order: OrderNewestFirst})
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// UpcomingForPatient returns appointments from today on, earliest first.
func (s *Service) UpcomingForPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	today := s.Today()
	appointments, err := s.repo.ListForPatient(ctx, patientID, PatientFilter{From: &today, Order: OrderTimeAsc})
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return appointments, nil
}
