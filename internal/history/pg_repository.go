package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

const historyColumns = `patient_id, last_updated_by, has_surgery, smoker, alcohol_use,
	allergies, chronic_conditions, pain_severity, notes, created_at, updated_at`

type PgRepository struct {
	pool db.DBTX
}

func NewPgRepository(pool db.DBTX) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.PatientID,
		&r.LastUpdatedBy,
		&r.HasSurgery,
		&r.Smoker,
		&r.AlcoholUse,
		&r.Allergies,
		&r.ChronicConditions,
		&r.PainSeverity,
		&r.Notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (r *PgRepository) Upsert(ctx context.Context, patientID, doctorID uuid.UUID, u Update) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO medical_histories (patient_id, last_updated_by, has_surgery, smoker, alcohol_use,
			allergies, chronic_conditions, pain_severity, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (patient_id) DO UPDATE
		SET last_updated_by    = EXCLUDED.last_updated_by,
		    has_surgery        = EXCLUDED.has_surgery,
		    smoker             = EXCLUDED.smoker,
		    alcohol_use        = EXCLUDED.alcohol_use,
		    allergies          = EXCLUDED.allergies,
		    chronic_conditions = EXCLUDED.chronic_conditions,
		    pain_severity      = EXCLUDED.pain_severity,
		    notes              = EXCLUDED.notes,
		    updated_at         = now()
		RETURNING `+historyColumns,
		patientID, doctorID, string(u.HasSurgery), string(u.Smoker), string(u.AlcoholUse),
		u.Allergies, u.ChronicConditions, string(u.PainSeverity), u.Notes)

	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upsert medical history: %w", err)
	}
	return rec, nil
}

func (r *PgRepository) Get(ctx context.Context, patientID uuid.UUID) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+historyColumns+`
		FROM medical_histories
		WHERE patient_id = $1
	`, patientID)
	return scanRecord(row)
}
