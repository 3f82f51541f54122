package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/history"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Slots

type SlotsResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date,omitempty"`
	Slots    []string  `json:"slots"`
}

// Availability

type AddWindowsRequest struct {
	DaysOfWeek []string `json:"days_of_week"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
}

type AddWindowsResponse struct {
	CreatedCount int              `json:"created_count"`
	SkippedCount int              `json:"skipped_count"`
	Windows      []WindowResponse `json:"windows"`
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type BulkDeleteResponse struct {
	RemovedCount int64 `json:"removed_count"`
}

type SetWindowActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

type WindowResponse struct {
	ID        uuid.UUID          `json:"id"`
	DoctorID  uuid.UUID          `json:"doctor_id"`
	DayOfWeek calendar.Weekday   `json:"day_of_week"`
	StartTime calendar.TimeOfDay `json:"start_time"`
	EndTime   calendar.TimeOfDay `json:"end_time"`
	IsActive  bool               `json:"is_active"`
}

func toWindowResponse(w availability.Window) WindowResponse {
	return WindowResponse{
		ID:        w.ID,
		DoctorID:  w.DoctorID,
		DayOfWeek: w.Day,
		StartTime: w.Start,
		EndTime:   w.End,
		IsActive:  w.Active,
	}
}

func toWindowResponses(windows []availability.Window) []WindowResponse {
	out := make([]WindowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, toWindowResponse(w))
	}
	return out
}

// Appointments

type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Reason          string `json:"reason"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type CompleteAppointmentRequest struct {
	MedicalHistory *HistoryRequest `json:"medical_history,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID          `json:"id"`
	DoctorID           uuid.UUID          `json:"doctor_id"`
	PatientID          uuid.UUID          `json:"patient_id"`
	AppointmentDate    calendar.Date      `json:"appointment_date"`
	AppointmentTime    calendar.TimeOfDay `json:"appointment_time"`
	Status             string             `json:"status"`
	Reason             string             `json:"reason,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	CancelledBy        string             `json:"cancelled_by,omitempty"`
	CancellationReason string             `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Count        int                   `json:"count"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                 a.ID,
		DoctorID:           a.DoctorID,
		PatientID:          a.PatientID,
		AppointmentDate:    a.Date,
		AppointmentTime:    a.Time,
		Status:             string(a.Status),
		Reason:             a.Reason,
		Notes:              a.Notes,
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if a.CancelledBy != nil {
		resp.CancelledBy = string(*a.CancelledBy)
	}
	return resp
}

func toAppointmentList(list []appointment.Appointment) AppointmentListResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAppointmentResponse(&list[i]))
	}
	return AppointmentListResponse{Appointments: out, Count: len(out)}
}

// Medical history

type HistoryRequest struct {
	HasSurgery        string `json:"has_surgery"`
	Smoker            string `json:"smoker"`
	AlcoholUse        string `json:"alcohol_use"`
	Allergies         string `json:"allergies"`
	ChronicConditions string `json:"chronic_conditions"`
	PainSeverity      string `json:"pain_severity"`
	Notes             string `json:"notes"`
}

func (r HistoryRequest) toUpdate() history.Update {
	return history.Update{
		HasSurgery:        history.YesNo(r.HasSurgery),
		Smoker:            history.YesNo(r.Smoker),
		AlcoholUse:        history.YesNo(r.AlcoholUse),
		Allergies:         r.Allergies,
		ChronicConditions: r.ChronicConditions,
		PainSeverity:      history.Severity(r.PainSeverity),
		Notes:             r.Notes,
	}
}

type HistoryResponse struct {
	PatientID         uuid.UUID  `json:"patient_id"`
	LastUpdatedBy     *uuid.UUID `json:"last_updated_by,omitempty"`
	HasSurgery        string     `json:"has_surgery"`
	Smoker            string     `json:"smoker"`
	AlcoholUse        string     `json:"alcohol_use"`
	Allergies         string     `json:"allergies"`
	ChronicConditions string     `json:"chronic_conditions"`
	PainSeverity      string     `json:"pain_severity"`
	Notes             string     `json:"notes"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toHistoryResponse(r *history.Record) HistoryResponse {
	return HistoryResponse{
		PatientID:         r.PatientID,
		LastUpdatedBy:     r.LastUpdatedBy,
		HasSurgery:        string(r.HasSurgery),
		Smoker:            string(r.Smoker),
		AlcoholUse:        string(r.AlcoholUse),
		Allergies:         r.Allergies,
		ChronicConditions: r.ChronicConditions,
		PainSeverity:      string(r.PainSeverity),
		Notes:             r.Notes,
		UpdatedAt:         r.UpdatedAt,
	}
}
