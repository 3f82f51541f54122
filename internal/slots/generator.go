package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
)

// DefaultDuration is the length of one bookable unit.
const DefaultDuration = 30 * time.Minute

var tracer = otel.Tracer("clinic/slots")

// WindowSource returns a doctor's active windows for one weekday.
type WindowSource interface {
	ActiveWindowsForDay(ctx context.Context, doctorID uuid.UUID, day calendar.Weekday) ([]availability.Window, error)
}

// BookingSource returns clock times held by pending or confirmed bookings.
type BookingSource interface {
	BookedTimes(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error)
}

type Generator struct {
	windows  WindowSource
	bookings BookingSource
	duration time.Duration
	logger   *zap.Logger
	metrics  *metrics.BookingMetrics
}

func NewGenerator(windows WindowSource, bookings BookingSource, duration time.Duration, logger *zap.Logger, m *metrics.BookingMetrics) *Generator {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		windows:  windows,
		bookings: bookings,
		duration: duration,
		logger:   logger,
		metrics:  m,
	}
}

// SlotsFor lists the free slot start times for doctorID on date, in window
// order and chronologically within each window.
func (g *Generator) SlotsFor(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	day := date.Weekday()
	ctx, span := tracer.Start(ctx, "slots.for", trace.WithAttributes(
		attribute.String("doctor_id", doctorID.String()),
		attribute.String("date", date.String()),
		attribute.String("weekday", day.String()),
	))
	defer span.End()

	started := time.Now()
	defer func() {
		g.metrics.ObserveSlotQuery(time.Since(started).Seconds())
	}()

	windows, err := g.windows.ActiveWindowsForDay(ctx, doctorID, day)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load windows: %w", err)
	}

	candidates := Candidates(windows, g.duration)
	if len(candidates) == 0 {
		return []calendar.TimeOfDay{}, nil
	}

	booked, err := g.bookings.BookedTimes(ctx, doctorID, date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load booked times: %w", err)
	}

	free := Subtract(candidates, booked)
	g.logger.Debug("slots generated",
		zap.String("doctor_id", doctorID.String()),
		zap.Stringer("date", date),
		zap.Int("windows", len(windows)),
		zap.Int("candidates", len(candidates)),
		zap.Int("free", len(free)),
	)
	return free, nil
}

// Candidates expands windows into slot start times. A start t is kept only
// when t+duration fits inside its window. Times produced by overlapping
// windows appear once, at their first position.
func Candidates(windows []availability.Window, duration time.Duration) []calendar.TimeOfDay {
	step := int(duration / time.Minute)
	if step <= 0 {
		return nil
	}

	seen := make(map[calendar.TimeOfDay]bool)
	out := []calendar.TimeOfDay{}
	for _, w := range windows {
		for t := w.Start; t+calendar.TimeOfDay(step) <= w.End; t += calendar.TimeOfDay(step) {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Subtract removes exact matches of booked from candidates, keeping order.
func Subtract(candidates, booked []calendar.TimeOfDay) []calendar.TimeOfDay {
	taken := make(map[calendar.TimeOfDay]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	free := make([]calendar.TimeOfDay, 0, len(candidates))
	for _, t := range candidates {
		if _, ok := taken[t]; ok {
			continue
		}
		free = append(free, t)
	}
	return free
}
