package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
	"github.com/hackgods/clinic-appointment-booking/internal/validation"
)

var tracer = otel.Tracer("clinic/availability")

type Service struct {
	repo    Repository
	logger  *zap.Logger
	metrics *metrics.BookingMetrics
}

func NewService(repo Repository, logger *zap.Logger, m *metrics.BookingMetrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: m,
	}
}

func validateRange(start, end calendar.TimeOfDay) error {
	if !start.Valid() {
		return validation.Invalid("start_time", "must be a time of day")
	}
	if !end.Valid() {
		return validation.Invalid("end_time", "must be a time of day")
	}
	if start >= end {
		return validation.Invalid("end_time", "must be after start_time")
	}
	return nil
}

// AddWindow creates one active window.
func (s *Service) AddWindow(ctx context.Context, doctorID uuid.UUID, day calendar.Weekday, start, end calendar.TimeOfDay) (*Window, error) {
	if doctorID == uuid.Nil {
		return nil, validation.Required("doctor_id")
	}
	if !day.Valid() {
		return nil, validation.Invalid("day_of_week", fmt.Sprintf("unknown weekday %q", day))
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	w, err := s.repo.Insert(ctx, NewWindow{DoctorID: doctorID, Day: day, Start: start, End: end})
	if err != nil {
		if errors.Is(err, ErrDuplicateWindow) {
			return nil, err
		}
		return nil, fmt.Errorf("add window: %w", err)
	}
	return w, nil
}

// AddWindows creates the same start/end range on each of days. Each day is
// checked on its own: an existing identical window counts as skipped and the
// rest of the batch continues.
func (s *Service) AddWindows(ctx context.Context, doctorID uuid.UUID, days []calendar.Weekday, start, end calendar.TimeOfDay) (*AddResult, error) {
	ctx, span := tracer.Start(ctx, "availability.add_windows")
	defer span.End()

	if doctorID == uuid.Nil {
		return nil, validation.Required("doctor_id")
	}
	if len(days) == 0 {
		return nil, validation.Required("days_of_week")
	}
	for _, d := range days {
		if !d.Valid() {
			return nil, validation.Invalid("days_of_week", fmt.Sprintf("unknown weekday %q", d))
		}
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	result := &AddResult{}
	seen := make(map[calendar.Weekday]bool, len(days))
	for _, day := range days {
		if seen[day] {
			result.Skipped++
			continue
		}
		seen[day] = true

		w, err := s.AddWindow(ctx, doctorID, day, start, end)
		if errors.Is(err, ErrDuplicateWindow) {
			result.Skipped++
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		result.Created++
		result.Windows = append(result.Windows, *w)
	}

	span.SetAttributes(
		attribute.Int("windows.created", result.Created),
		attribute.Int("windows.skipped", result.Skipped),
	)
	s.metrics.ObserveWindows(result.Created, result.Skipped)
	s.logger.Info("availability windows added",
		zap.String("doctor_id", doctorID.String()),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Stringer("start", start),
		zap.Stringer("end", end),
	)

	return result, nil
}

// ListWindows returns the doctor's windows Monday through Sunday, then by start time.
func (s *Service) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	windows, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	SortWindows(windows)
	return windows, nil
}

// ActiveWindowsForDay feeds the slot generator.
func (s *Service) ActiveWindowsForDay(ctx context.Context, doctorID uuid.UUID, day calendar.Weekday) ([]Window, error) {
	windows, err := s.repo.ActiveForDay(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("active windows for %s: %w", day, err)
	}
	return windows, nil
}

func (s *Service) RemoveWindow(ctx context.Context, id, doctorID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, doctorID); err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return err
		}
		return fmt.Errorf("remove window: %w", err)
	}
	s.logger.Info("availability window removed",
		zap.String("doctor_id", doctorID.String()),
		zap.String("window_id", id.String()),
	)
	return nil
}

// RemoveWindows deletes the subset of ids owned by the doctor. Unknown or
// foreign ids are ignored.
func (s *Service) RemoveWindows(ctx context.Context, ids []uuid.UUID, doctorID uuid.UUID) (int64, error) {
	removed, err := s.repo.DeleteMany(ctx, ids, doctorID)
	if err != nil {
		return 0, fmt.Errorf("remove windows: %w", err)
	}
	s.logger.Info("availability windows removed",
		zap.String("doctor_id", doctorID.String()),
		zap.Int("requested", len(ids)),
		zap.Int64("removed", removed),
	)
	return removed, nil
}

func (s *Service) SetWindowActive(ctx context.Context, id, doctorID uuid.UUID, active bool) (*Window, error) {
	w, err := s.repo.SetActive(ctx, id, doctorID, active)
	if err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set window active: %w", err)
	}
	return w, nil
}

// SortWindows orders windows by Monday-first weekday, then start time, then end time.
func SortWindows(windows []Window) {
	sort.SliceStable(windows, func(i, j int) bool {
		a, b := windows[i], windows[j]
		if a.Day != b.Day {
			return a.Day.Index() < b.Day.Index()
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
}
