package appointment

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/history"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
	"github.com/hackgods/clinic-appointment-booking/internal/validation"
)

// -- In-memory repository --

type memRepo struct {
	mu     sync.Mutex
	appts  map[uuid.UUID]*Appointment
	events []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *memRepo) HasActiveForPatientOnDay(_ context.Context, doctorID, patientID uuid.UUID, date calendar.Date) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.PatientID == patientID && a.Date == date && a.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) IsSlotTaken(_ context.Context, doctorID uuid.UUID, date calendar.Date, at calendar.TimeOfDay) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Time == at && a.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ActiveTimesOnDate(_ context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []calendar.TimeOfDay
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Status.Active() {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func (m *memRepo) CreatePending(_ context.Context, req BookingRequest) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	a := &Appointment{
		ID:        uuid.New(),
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      req.Date,
		Time:      req.Time,
		Status:    StatusPending,
		Reason:    req.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.appts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, change StatusChange) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[change.ID]
	if !ok || a.Status != change.From {
		return nil, ErrAppointmentNotFound
	}
	a.Status = change.To
	a.CancelledBy = change.CancelledBy
	a.CancellationReason = change.CancellationReason
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memRepo) sorted(match func(*Appointment) bool, order ListOrder) []Appointment {
	var out []Appointment
	for _, a := range m.appts {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		less := a.Date.Before(b.Date) || (a.Date == b.Date && a.Time < b.Time)
		if order == OrderTimeAsc {
			return less
		}
		return !less && !(a.Date == b.Date && a.Time == b.Time)
	})
	return out
}

func (m *memRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, f DoctorFilter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(a *Appointment) bool {
		switch {
		case a.DoctorID != doctorID:
			return false
		case f.Status != nil && a.Status != *f.Status:
			return false
		case f.From != nil && a.Date.Before(*f.From):
			return false
		case f.To != nil && a.Date.After(*f.To):
			return false
		case f.ExcludeCancelled && a.Status == StatusCancelled:
			return false
		}
		return true
	}, f.Order), nil
}

func (m *memRepo) ListForPatient(_ context.Context, patientID uuid.UUID, f PatientFilter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(a *Appointment) bool {
		return a.PatientID == patientID && (f.From == nil || !a.Date.Before(*f.From))
	}, f.Order), nil
}

func (m *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.EventType)
	}
	return out
}

// -- Locker and history fakes --

type localLocker struct {
	mu   sync.Mutex
	busy bool
	keys []string
}

func (l *localLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return fn(ctx)
}

type recordingHistory struct {
	patients []uuid.UUID
}

func (h *recordingHistory) Upsert(_ context.Context, patientID, doctorID uuid.UUID, u history.Update) (*history.Record, error) {
	h.patients = append(h.patients, patientID)
	return &history.Record{PatientID: patientID, LastUpdatedBy: &doctorID, Notes: u.Notes}, nil
}

// -- Helpers --

// 2025-06-02 is a Monday.
var today = calendar.Date{Year: 2025, Month: time.June, Day: 2}

type fixture struct {
	svc     *Service
	repo    *memRepo
	locker  *localLocker
	history *recordingHistory
	doctor  uuid.UUID
	patient uuid.UUID
}

func newFixture() *fixture {
	repo := newMemRepo()
	locker := &localLocker{}
	hist := &recordingHistory{}
	svc := NewService(repo, locker, hist, nil, nil).WithClock(func() time.Time {
		return time.Date(2025, time.June, 2, 8, 15, 0, 0, time.Local)
	})
	return &fixture{
		svc:     svc,
		repo:    repo,
		locker:  locker,
		history: hist,
		doctor:  uuid.New(),
		patient: uuid.New(),
	}
}

func (f *fixture) book(t *testing.T, patient uuid.UUID, date calendar.Date, at calendar.TimeOfDay) (*Appointment, error) {
	t.Helper()
	return f.svc.Book(context.Background(), BookingRequest{
		DoctorID:  f.doctor,
		PatientID: patient,
		Date:      date,
		Time:      at,
		Reason:    "checkup",
	})
}

func (f *fixture) mustBook(t *testing.T, patient uuid.UUID, date calendar.Date, at calendar.TimeOfDay) *Appointment {
	t.Helper()
	appt, err := f.book(t, patient, date, at)
	require.NoError(t, err)
	return appt
}

func (f *fixture) doctorActor() Actor  { return Actor{Role: RoleDoctor, ID: f.doctor} }
func (f *fixture) patientActor() Actor { return Actor{Role: RolePatient, ID: f.patient} }

// -- Booking --

func TestBookCreatesPending(t *testing.T) {
	f := newFixture()

	appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 30))
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, calendar.Clock(9, 30), appt.Time)
	assert.Equal(t, []string{redisclient.DoctorDayKey(f.doctor, "2025-06-02")}, f.locker.keys)
	assert.Equal(t, []string{EventAppointmentBooked}, f.repo.eventTypes())

	times, err := f.svc.BookedTimes(context.Background(), f.doctor, today)
	require.NoError(t, err)
	assert.Equal(t, []calendar.TimeOfDay{calendar.Clock(9, 30)}, times)
}

func TestBookSlotCollision(t *testing.T) {
	f := newFixture()
	date := today.AddDays(6)
	f.mustBook(t, f.patient, date, calendar.Clock(10, 0))

	_, err := f.book(t, uuid.New(), date, calendar.Clock(10, 0))
	assert.ErrorIs(t, err, ErrSlotCollision)
}

func TestBookDuplicatePatientSameDay(t *testing.T) {
	f := newFixture()
	date := today.AddDays(6)
	f.mustBook(t, f.patient, date, calendar.Clock(10, 0))

	_, err := f.book(t, f.patient, date, calendar.Clock(14, 0))
	assert.ErrorIs(t, err, ErrDuplicatePatientBooking)

	// Another day with the same doctor is fine.
	_, err = f.book(t, f.patient, date.AddDays(1), calendar.Clock(14, 0))
	assert.NoError(t, err)
}

func TestBookPastDate(t *testing.T) {
	f := newFixture()
	_, err := f.book(t, f.patient, today.AddDays(-1), calendar.Clock(10, 0))
	assert.ErrorIs(t, err, ErrPastDate)
	assert.Empty(t, f.repo.eventTypes())
}

func TestBookMissingFields(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Book(context.Background(), BookingRequest{DoctorID: f.doctor, Date: today, Time: calendar.Clock(9, 0)})
	assert.True(t, validation.IsValidation(err))
	assert.Empty(t, f.locker.keys, "invalid requests never take the lock")
}

func TestBookLockContention(t *testing.T) {
	f := newFixture()
	f.locker.busy = true
	_, err := f.book(t, f.patient, today, calendar.Clock(9, 0))
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture()
	appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 30))

	cancelled, err := f.svc.Cancel(context.Background(), appt.ID, f.patientActor(), "feeling better")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, RolePatient, *cancelled.CancelledBy)
	assert.Equal(t, "feeling better", cancelled.CancellationReason)

	times, err := f.svc.BookedTimes(context.Background(), f.doctor, today)
	require.NoError(t, err)
	assert.Empty(t, times)

	// Both the slot and the patient's day are free again.
	_, err = f.book(t, f.patient, today, calendar.Clock(9, 30))
	assert.NoError(t, err)
}

// -- State machine --

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm then complete", func(t *testing.T) {
		f := newFixture()
		appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 0))

		confirmed, err := f.svc.Confirm(ctx, appt.ID, f.doctor)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, confirmed.Status)

		completed, err := f.svc.Complete(ctx, appt.ID, f.doctor, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, completed.Status)

		assert.Equal(t, []string{
			EventAppointmentBooked,
			EventAppointmentConfirmed,
			EventAppointmentCompleted,
		}, f.repo.eventTypes())
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		f := newFixture()
		appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 0))

		_, err := f.svc.Complete(ctx, appt.ID, f.doctor, nil)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		f := newFixture()
		appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 0))
		_, err := f.svc.Cancel(ctx, appt.ID, f.doctorActor(), "")
		require.NoError(t, err)

		_, err = f.svc.Complete(ctx, appt.ID, f.doctor, nil)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		_, err = f.svc.Confirm(ctx, appt.ID, f.doctor)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		_, err = f.svc.Cancel(ctx, appt.ID, f.patientActor(), "")
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("no show only after confirm", func(t *testing.T) {
		f := newFixture()
		appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 0))

		_, err := f.svc.MarkNoShow(ctx, appt.ID, f.doctor)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)

		_, err = f.svc.Confirm(ctx, appt.ID, f.doctor)
		require.NoError(t, err)
		noShow, err := f.svc.MarkNoShow(ctx, appt.ID, f.doctor)
		require.NoError(t, err)
		assert.Equal(t, StatusNoShow, noShow.Status)
	})
}

func TestTransitionsRequireOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 0))

	_, err := f.svc.Confirm(ctx, appt.ID, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = f.svc.Cancel(ctx, appt.ID, Actor{Role: RolePatient, ID: uuid.New()}, "")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = f.svc.Cancel(ctx, appt.ID, Actor{Role: RoleAdmin, ID: uuid.New()}, "clinic closed")
	assert.NoError(t, err)
}

func TestCompleteSavesHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 0))
	_, err := f.svc.Confirm(ctx, appt.ID, f.doctor)
	require.NoError(t, err)

	completed, err := f.svc.Complete(ctx, appt.ID, f.doctor, &history.Update{Notes: "follow up in 2 weeks"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, []uuid.UUID{f.patient}, f.history.patients)
}

func TestCompleteSkipsHistoryOnInvalidTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 0))

	_, err := f.svc.Complete(ctx, appt.ID, f.doctor, &history.Update{Notes: "n/a"})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Empty(t, f.history.patients)
}

// -- Listings --

func TestListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	other := uuid.New()

	early := f.mustBook(t, other, today, calendar.Clock(9, 0))
	late := f.mustBook(t, f.patient, today, calendar.Clock(11, 0))
	dropped := f.mustBook(t, uuid.New(), today, calendar.Clock(10, 0))
	next := f.mustBook(t, f.patient, today.AddDays(7), calendar.Clock(8, 0))
	_, err := f.svc.Cancel(ctx, dropped.ID, f.doctorActor(), "")
	require.NoError(t, err)

	todays, err := f.svc.TodayForDoctor(ctx, f.doctor)
	require.NoError(t, err)
	require.Len(t, todays, 2)
	assert.Equal(t, early.ID, todays[0].ID)
	assert.Equal(t, late.ID, todays[1].ID)

	all, err := f.svc.ListForDoctor(ctx, f.doctor, DoctorFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, next.ID, all[0].ID, "newest first")

	cancelled := StatusCancelled
	onlyCancelled, err := f.svc.ListForDoctor(ctx, f.doctor, DoctorFilter{Status: &cancelled})
	require.NoError(t, err)
	require.Len(t, onlyCancelled, 1)
	assert.Equal(t, dropped.ID, onlyCancelled[0].ID)

	mine, err := f.svc.ListForPatient(ctx, f.patient)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, next.ID, mine[0].ID)

	upcoming, err := f.svc.UpcomingForPatient(ctx, f.patient)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, late.ID, upcoming[0].ID)
}

func TestListForDoctorRejectsInvertedRange(t *testing.T) {
	f := newFixture()
	from, to := today, today.AddDays(-3)
	_, err := f.svc.ListForDoctor(context.Background(), f.doctor, DoctorFilter{From: &from, To: &to})
	assert.True(t, validation.IsValidation(err))
}

func TestGetAppointmentOwnership(t *testing.T) {
	f := newFixture()
	appt := f.mustBook(t, f.patient, today, calendar.Clock(9, 0))

	got, err := f.svc.GetAppointment(context.Background(), appt.ID, f.patientActor())
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)

	_, err = f.svc.GetAppointment(context.Background(), appt.ID, Actor{Role: RoleDoctor, ID: uuid.New()})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
