package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/history"
	"github.com/hackgods/clinic-appointment-booking/internal/validation"
)

type AvailabilityService interface {
	AddWindows(ctx context.Context, doctorID uuid.UUID, days []calendar.Weekday, start, end calendar.TimeOfDay) (*availability.AddResult, error)
	ListWindows(ctx context.Context, doctorID uuid.UUID) ([]availability.Window, error)
	RemoveWindow(ctx context.Context, id, doctorID uuid.UUID) error
	RemoveWindows(ctx context.Context, ids []uuid.UUID, doctorID uuid.UUID) (int64, error)
	SetWindowActive(ctx context.Context, id, doctorID uuid.UUID, active bool) (*availability.Window, error)
}

type SlotService interface {
	SlotsFor(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error)
}

type AppointmentService interface {
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID, actor appointment.Actor) (*appointment.Appointment, error)
	Confirm(ctx context.Context, id, doctorID uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, actor appointment.Actor, reason string) (*appointment.Appointment, error)
	Complete(ctx context.Context, id, doctorID uuid.UUID, update *history.Update) (*appointment.Appointment, error)
	MarkNoShow(ctx context.Context, id, doctorID uuid.UUID) (*appointment.Appointment, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, filter appointment.DoctorFilter) ([]appointment.Appointment, error)
	TodayForDoctor(ctx context.Context, doctorID uuid.UUID) ([]appointment.Appointment, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Appointment, error)
	UpcomingForPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Appointment, error)
}

type HistoryService interface {
	Upsert(ctx context.Context, patientID, doctorID uuid.UUID, u history.Update) (*history.Record, error)
	Get(ctx context.Context, patientID uuid.UUID) (*history.Record, error)
}

type Handler struct {
	availability AvailabilityService
	slots        SlotService
	appointments AppointmentService
	history      HistoryService
	logger       *zap.Logger
}

// fail writes err as a response, logging anything that maps to a 5xx.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	rec := &statusRecorder{ResponseWriter: w}
	writeServiceError(rec, err)
	if rec.status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// -- Slots --

func (h *Handler) getSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok {
		return
	}

	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeJSON(w, http.StatusOK, SlotsResponse{DoctorID: doctorID, Slots: []string{}})
		return
	}
	date, err := calendar.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	free, err := h.slots.SlotsFor(r.Context(), doctorID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]string, 0, len(free))
	for _, t := range free {
		out = append(out, t.String())
	}
	writeJSON(w, http.StatusOK, SlotsResponse{DoctorID: doctorID, Date: date.String(), Slots: out})
}

// -- Availability --

func (h *Handler) listWindows(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok {
		return
	}

	windows, err := h.availability.ListWindows(r.Context(), doctorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowResponses(windows))
}

func (h *Handler) addWindows(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok || !requireDoctorSelf(w, r, doctorID) {
		return
	}

	var req AddWindowsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	days := make([]calendar.Weekday, 0, len(req.DaysOfWeek))
	for _, d := range req.DaysOfWeek {
		days = append(days, calendar.Weekday(d))
	}
	start, err := calendar.ParseTimeOfDay(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "start_time must be HH:MM")
		return
	}
	end, err := calendar.ParseTimeOfDay(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "end_time must be HH:MM")
		return
	}

	result, err := h.availability.AddWindows(r.Context(), doctorID, days, start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AddWindowsResponse{
		CreatedCount: result.Created,
		SkippedCount: result.Skipped,
		Windows:      toWindowResponses(result.Windows),
	})
}

func (h *Handler) deleteWindow(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok || !requireDoctorSelf(w, r, doctorID) {
		return
	}
	id, ok := uuidParam(w, r, "windowID")
	if !ok {
		return
	}

	if err := h.availability.RemoveWindow(r.Context(), id, doctorID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) bulkDeleteWindows(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok || !requireDoctorSelf(w, r, doctorID) {
		return
	}

	var req BulkDeleteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "ids: is required")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "ids: must contain valid UUIDs")
			return
		}
		ids = append(ids, id)
	}

	removed, err := h.availability.RemoveWindows(r.Context(), ids, doctorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkDeleteResponse{RemovedCount: removed})
}

func (h *Handler) patchWindow(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok || !requireDoctorSelf(w, r, doctorID) {
		return
	}
	id, ok := uuidParam(w, r, "windowID")
	if !ok {
		return
	}

	var req SetWindowActiveRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "is_active: is required")
		return
	}

	win, err := h.availability.SetWindowActive(r.Context(), id, doctorID, *req.IsActive)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowResponse(*win))
}

// -- Appointments --

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	patientID, ok := requirePatient(w, r)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	date, err := calendar.ParseDate(req.AppointmentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "appointment_date must be YYYY-MM-DD")
		return
	}
	at, err := calendar.ParseTimeOfDay(req.AppointmentTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "appointment_time must be HH:MM")
		return
	}

	appt, err := h.appointments.Book(r.Context(), appointment.BookingRequest{
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
		Time:      at,
		Reason:    req.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.GetAppointment(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) listPatientAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := requirePatient(w, r)
	if !ok {
		return
	}

	list, err := h.appointments.ListForPatient(r.Context(), patientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentList(list))
}

func (h *Handler) upcomingAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := requirePatient(w, r)
	if !ok {
		return
	}

	list, err := h.appointments.UpcomingForPatient(r.Context(), patientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentList(list))
}

func (h *Handler) listDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok || !requireDoctorSelf(w, r, doctorID) {
		return
	}

	filter, err := parseDoctorFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list, err := h.appointments.ListForDoctor(r.Context(), doctorID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentList(list))
}

func (h *Handler) todayAppointments(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorID")
	if !ok || !requireDoctorSelf(w, r, doctorID) {
		return
	}

	list, err := h.appointments.TodayForDoctor(r.Context(), doctorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentList(list))
}

func (h *Handler) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := requireDoctor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.Confirm(r.Context(), id, doctorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req CancelAppointmentRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := h.appointments.Cancel(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) completeAppointment(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := requireDoctor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req CompleteAppointmentRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	var update *history.Update
	if req.MedicalHistory != nil {
		u := req.MedicalHistory.toUpdate()
		update = &u
	}

	appt, err := h.appointments.Complete(r.Context(), id, doctorID, update)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) noShowAppointment(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := requireDoctor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.MarkNoShow(r.Context(), id, doctorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// -- Medical history --

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	if actor.Role == appointment.RolePatient && actor.ID != patientID {
		writeError(w, http.StatusForbidden, "forbidden", "patients may only read their own history")
		return
	}

	rec, err := h.history.Get(r.Context(), patientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(rec))
}

func (h *Handler) putHistory(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := requireDoctor(w, r)
	if !ok {
		return
	}
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}

	var req HistoryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	rec, err := h.history.Upsert(r.Context(), patientID, doctorID, req.toUpdate())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(rec))
}

func parseDoctorFilter(r *http.Request) (appointment.DoctorFilter, error) {
	q := r.URL.Query()
	var f appointment.DoctorFilter

	if raw := q.Get("status"); raw != "" {
		st, ok := appointment.ParseStatus(raw)
		if !ok {
			return f, validation.Invalid("status", "unknown status")
		}
		f.Status = &st
	}
	for _, p := range []struct {
		name string
		dst  **calendar.Date
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		d, err := calendar.ParseDate(raw)
		if err != nil {
			return f, validation.Invalid(p.name, "must be YYYY-MM-DD")
		}
		*p.dst = &d
	}
	if q.Get("order") == "asc" {
		f.Order = appointment.OrderTimeAsc
	}
	return f, nil
}
