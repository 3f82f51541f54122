package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
)

var (
	ErrWindowNotFound  = errors.New("availability window not found")
	ErrDuplicateWindow = errors.New("availability window already exists")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Insert returns ErrDuplicateWindow when the exact (doctor, day, start, end)
	// window exists, active or not.
	Insert(ctx context.Context, w NewWindow) (*Window, error)

	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Window, error)
	ActiveForDay(ctx context.Context, doctorID uuid.UUID, day calendar.Weekday) ([]Window, error)

	// Ownership is part of the match: a window of another doctor is not found.
	Delete(ctx context.Context, id, doctorID uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID, doctorID uuid.UUID) (int64, error)
	SetActive(ctx context.Context, id, doctorID uuid.UUID, active bool) (*Window, error)
}
