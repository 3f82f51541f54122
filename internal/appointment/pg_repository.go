package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

const (
	appointmentColumns = `id, doctor_id, patient_id, to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI'),
		status, reason, notes, cancelled_by, cancellation_reason, created_at, updated_at`

	activeStatusSQL = `status IN ('pending', 'confirmed')`

	constraintActiveSlot       = "appointments_active_slot_uniq"
	constraintActivePatientDay = "appointments_active_patient_day_uniq"
)

type PgRepository struct {
	pool db.DBTX
}

func NewPgRepository(pool db.DBTX) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a           Appointment
		date, at    string
		cancelledBy *string
	)

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&date,
		&at,
		&a.Status,
		&a.Reason,
		&a.Notes,
		&cancelledBy,
		&a.CancellationReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if a.Date, err = calendar.ParseDate(date); err != nil {
		return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	if a.Time, err = calendar.ParseTimeOfDay(at); err != nil {
		return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	if cancelledBy != nil {
		role := Role(*cancelledBy)
		a.CancelledBy = &role
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func orderClause(order ListOrder) string {
	if order == OrderTimeAsc {
		return "ORDER BY appointment_date, appointment_time"
	}
	return "ORDER BY appointment_date DESC, appointment_time DESC"
}

// Interface methods

func (r *PgRepository) HasActiveForPatientOnDay(ctx context.Context, doctorID, patientID uuid.UUID, date calendar.Date) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND patient_id = $2
			  AND appointment_date = $3::date
			  AND `+activeStatusSQL+`
		)
	`, doctorID, patientID, date.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check patient booking: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) IsSlotTaken(ctx context.Context, doctorID uuid.UUID, date calendar.Date, at calendar.TimeOfDay) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND appointment_date = $2::date
			  AND appointment_time = $3::time
			  AND `+activeStatusSQL+`
		)
	`, doctorID, date.String(), at.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) ActiveTimesOnDate(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(appointment_time, 'HH24:MI')
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2::date
		  AND `+activeStatusSQL+`
	`, doctorID, date.String())
	if err != nil {
		return nil, fmt.Errorf("list booked times: %w", err)
	}
	defer rows.Close()

	var result []calendar.TimeOfDay
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := calendar.ParseTimeOfDay(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreatePending(ctx context.Context, req BookingRequest) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, appointment_date, appointment_time, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5::time, 'pending', $6, now(), now())
		RETURNING `+appointmentColumns,
		uuid.New(), req.DoctorID, req.PatientID, req.Date.String(), req.Time.String(), req.Reason)

	appt, err := scanAppointment(row)
	if err != nil {
		switch db.UniqueViolation(err) {
		case constraintActiveSlot:
			return nil, ErrSlotCollision
		case constraintActivePatientDay:
			return nil, ErrDuplicatePatientBooking
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, change StatusChange) (*Appointment, error) {
	var cancelledBy *string
	if change.CancelledBy != nil {
		s := string(*change.CancelledBy)
		cancelledBy = &s
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    cancelled_by = $4,
		    cancellation_reason = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		change.ID, string(change.To), string(change.From), cancelledBy, change.CancellationReason)

	return scanAppointment(row)
}

func (r *PgRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, filter DoctorFilter) ([]Appointment, error) {
	var (
		where = []string{"doctor_id = $1"}
		args  = []any{doctorID}
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.From != nil {
		add("appointment_date >= $%d::date", filter.From.String())
	}
	if filter.To != nil {
		add("appointment_date <= $%d::date", filter.To.String())
	}
	if filter.ExcludeCancelled {
		where = append(where, "status <> 'cancelled'")
	}

	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE ` + strings.Join(where, " AND ") + `
		` + orderClause(filter.Order)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListForPatient(ctx context.Context, patientID uuid.UUID, filter PatientFilter) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1`
	args := []any{patientID}
	if filter.From != nil {
		query += ` AND appointment_date >= $2::date`
		args = append(args, filter.From.String())
	}
	query += "\n" + orderClause(filter.Order)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
