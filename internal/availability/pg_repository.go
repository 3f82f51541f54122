package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

const windowColumns = `id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), is_active, created_at, updated_at`

type PgRepository struct {
	pool db.DBTX
}

func NewPgRepository(pool db.DBTX) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanWindow(row pgx.Row) (*Window, error) {
	var (
		w          Window
		day        string
		start, end string
	)

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&day,
		&start,
		&end,
		&w.Active,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	if w.Day, err = calendar.ParseWeekday(day); err != nil {
		return nil, fmt.Errorf("window %s: %w", w.ID, err)
	}
	if w.Start, err = calendar.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("window %s: %w", w.ID, err)
	}
	if w.End, err = calendar.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("window %s: %w", w.ID, err)
	}

	return &w, nil
}

func collectWindows(rows pgx.Rows) ([]Window, error) {
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Insert(ctx context.Context, w NewWindow) (*Window, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_windows (id, doctor_id, day_of_week, start_time, end_time, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4::time, $5::time, TRUE, now(), now())
		ON CONFLICT (doctor_id, day_of_week, start_time, end_time) DO NOTHING
		RETURNING `+windowColumns,
		uuid.New(), w.DoctorID, string(w.Day), w.Start.String(), w.End.String())

	created, err := scanWindow(row)
	if errors.Is(err, ErrWindowNotFound) {
		// ON CONFLICT DO NOTHING returns no row for an existing window.
		return nil, ErrDuplicateWindow
	}
	if err != nil {
		return nil, fmt.Errorf("insert availability window: %w", err)
	}
	return created, nil
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1
		ORDER BY start_time
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return collectWindows(rows)
}

func (r *PgRepository) ActiveForDay(ctx context.Context, doctorID uuid.UUID, day calendar.Weekday) ([]Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1
		  AND day_of_week = $2
		  AND is_active
		ORDER BY start_time, end_time
	`, doctorID, string(day))
	if err != nil {
		return nil, fmt.Errorf("list active windows: %w", err)
	}
	return collectWindows(rows)
}

func (r *PgRepository) Delete(ctx context.Context, id, doctorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE id = $1 AND doctor_id = $2
	`, id, doctorID)
	if err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

func (r *PgRepository) DeleteMany(ctx context.Context, ids []uuid.UUID, doctorID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE id = ANY($1) AND doctor_id = $2
	`, ids, doctorID)
	if err != nil {
		return 0, fmt.Errorf("bulk delete availability windows: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) SetActive(ctx context.Context, id, doctorID uuid.UUID, active bool) (*Window, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_windows
		SET is_active = $3,
		    updated_at = now()
		WHERE id = $1 AND doctor_id = $2
		RETURNING `+windowColumns,
		id, doctorID, active)
	return scanWindow(row)
}
