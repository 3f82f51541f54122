package history

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrHistoryNotFound = errors.New("medical history not found")

type Repository interface {
	Upsert(ctx context.Context, patientID, doctorID uuid.UUID, u Update) (*Record, error)
	Get(ctx context.Context, patientID uuid.UUID) (*Record, error)
}
