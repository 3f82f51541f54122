package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
)

type fakeWindows struct {
	byDay map[calendar.Weekday][]availability.Window
	err   error
	calls int
}

func (f *fakeWindows) ActiveWindowsForDay(_ context.Context, _ uuid.UUID, day calendar.Weekday) ([]availability.Window, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byDay[day], nil
}

type fakeBookings struct {
	times []calendar.TimeOfDay
	err   error
	calls int
}

func (f *fakeBookings) BookedTimes(_ context.Context, _ uuid.UUID, _ calendar.Date) ([]calendar.TimeOfDay, error) {
	f.calls++
	return f.times, f.err
}

func window(day calendar.Weekday, start, end calendar.TimeOfDay) availability.Window {
	return availability.Window{ID: uuid.New(), Day: day, Start: start, End: end, Active: true}
}

func clocks(values ...string) []calendar.TimeOfDay {
	out := make([]calendar.TimeOfDay, 0, len(values))
	for _, v := range values {
		t, err := calendar.ParseTimeOfDay(v)
		if err != nil {
			panic(err)
		}
		out = append(out, t)
	}
	return out
}

// 2025-06-02 is a Monday.
var monday = calendar.Date{Year: 2025, Month: time.June, Day: 2}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name    string
		windows []availability.Window
		want    []calendar.TimeOfDay
	}{
		{
			name:    "one hour yields two units",
			windows: []availability.Window{window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(10, 0))},
			want:    clocks("09:00", "09:30"),
		},
		{
			name:    "no full unit fits",
			windows: []availability.Window{window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(9, 29))},
			want:    []calendar.TimeOfDay{},
		},
		{
			name:    "thirty one minutes yields one unit",
			windows: []availability.Window{window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(9, 31))},
			want:    clocks("09:00"),
		},
		{
			name: "window order is kept",
			windows: []availability.Window{
				window(calendar.Monday, calendar.Clock(14, 0), calendar.Clock(15, 0)),
				window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(10, 0)),
			},
			want: clocks("14:00", "14:30", "09:00", "09:30"),
		},
		{
			name: "overlapping windows are deduplicated",
			windows: []availability.Window{
				window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(10, 0)),
				window(calendar.Monday, calendar.Clock(9, 30), calendar.Clock(10, 30)),
			},
			want: clocks("09:00", "09:30", "10:00"),
		},
		{
			name: "off grid start",
			windows: []availability.Window{
				window(calendar.Monday, calendar.Clock(9, 15), calendar.Clock(10, 15)),
			},
			want: clocks("09:15", "09:45"),
		},
		{
			name: "no windows",
			want: []calendar.TimeOfDay{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.windows, DefaultDuration))
		})
	}
}

func TestCandidatesCustomDuration(t *testing.T) {
	got := Candidates([]availability.Window{
		window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(10, 0)),
	}, 20*time.Minute)
	assert.Equal(t, clocks("09:00", "09:20", "09:40"), got)
}

func TestSubtractKeepsOrder(t *testing.T) {
	got := Subtract(clocks("10:00", "09:00", "09:30"), clocks("09:00", "12:00"))
	assert.Equal(t, clocks("10:00", "09:30"), got)
}

func TestSlotsForExcludesBookedTimes(t *testing.T) {
	windows := &fakeWindows{byDay: map[calendar.Weekday][]availability.Window{
		calendar.Monday: {window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(11, 0))},
	}}
	bookings := &fakeBookings{times: clocks("09:30")}
	g := NewGenerator(windows, bookings, 0, nil, nil)

	got, err := g.SlotsFor(context.Background(), uuid.New(), monday)
	require.NoError(t, err)
	assert.Equal(t, clocks("09:00", "10:00", "10:30"), got)
}

func TestSlotsForNoWindowOnWeekday(t *testing.T) {
	windows := &fakeWindows{byDay: map[calendar.Weekday][]availability.Window{
		calendar.Tuesday: {window(calendar.Tuesday, calendar.Clock(9, 0), calendar.Clock(11, 0))},
	}}
	bookings := &fakeBookings{}
	g := NewGenerator(windows, bookings, DefaultDuration, nil, nil)

	got, err := g.SlotsFor(context.Background(), uuid.New(), monday)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, bookings.calls, "booked times are not read when there are no candidates")
}

func TestSlotsForIsIdempotent(t *testing.T) {
	windows := &fakeWindows{byDay: map[calendar.Weekday][]availability.Window{
		calendar.Monday: {
			window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(10, 0)),
			window(calendar.Monday, calendar.Clock(13, 0), calendar.Clock(14, 30)),
		},
	}}
	bookings := &fakeBookings{times: clocks("13:30")}
	g := NewGenerator(windows, bookings, DefaultDuration, nil, nil)
	doctor := uuid.New()

	first, err := g.SlotsFor(context.Background(), doctor, monday)
	require.NoError(t, err)
	second, err := g.SlotsFor(context.Background(), doctor, monday)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, clocks("09:00", "09:30", "13:00", "14:00"), first)
}

func TestSlotsForPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	g := NewGenerator(&fakeWindows{err: boom}, &fakeBookings{}, DefaultDuration, nil, nil)
	_, err := g.SlotsFor(context.Background(), uuid.New(), monday)
	assert.ErrorIs(t, err, boom)

	windows := &fakeWindows{byDay: map[calendar.Weekday][]availability.Window{
		calendar.Monday: {window(calendar.Monday, calendar.Clock(9, 0), calendar.Clock(10, 0))},
	}}
	g = NewGenerator(windows, &fakeBookings{err: boom}, DefaultDuration, nil, nil)
	_, err = g.SlotsFor(context.Background(), uuid.New(), monday)
	assert.ErrorIs(t, err, boom)
}
