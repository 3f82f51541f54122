package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/validation"
)

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Upsert validates u and stores it as the patient's history, recording
// doctorID as the last editor.
func (s *Service) Upsert(ctx context.Context, patientID, doctorID uuid.UUID, u Update) (*Record, error) {
	if patientID == uuid.Nil {
		return nil, validation.Required("patient_id")
	}
	if doctorID == uuid.Nil {
		return nil, validation.Required("doctor_id")
	}

	u, err := u.normalize()
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.Upsert(ctx, patientID, doctorID, u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("medical history updated",
		zap.String("patient_id", patientID.String()),
		zap.String("doctor_id", doctorID.String()),
	)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, patientID uuid.UUID) (*Record, error) {
	rec, err := s.repo.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrHistoryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get medical history: %w", err)
	}
	return rec, nil
}
