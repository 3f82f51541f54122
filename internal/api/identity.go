package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
)

// Identity headers are set by the session gateway in front of this service.
const (
	HeaderDoctorID  = "X-Doctor-ID"
	HeaderPatientID = "X-Patient-ID"
	HeaderActorRole = "X-Actor-Role"
)

func headerUUID(r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.Header.Get(name)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// actorFromRequest resolves the caller. Without an explicit role the doctor
// header wins over the patient header.
func actorFromRequest(r *http.Request) (appointment.Actor, bool) {
	if raw := r.Header.Get(HeaderActorRole); raw != "" {
		role, ok := appointment.ParseRole(raw)
		if !ok {
			return appointment.Actor{}, false
		}
		switch role {
		case appointment.RoleAdmin:
			return appointment.Actor{Role: role}, true
		case appointment.RoleDoctor:
			id, ok := headerUUID(r, HeaderDoctorID)
			return appointment.Actor{Role: role, ID: id}, ok
		default:
			id, ok := headerUUID(r, HeaderPatientID)
			return appointment.Actor{Role: role, ID: id}, ok
		}
	}

	if id, ok := headerUUID(r, HeaderDoctorID); ok {
		return appointment.Actor{Role: appointment.RoleDoctor, ID: id}, true
	}
	if id, ok := headerUUID(r, HeaderPatientID); ok {
		return appointment.Actor{Role: appointment.RolePatient, ID: id}, true
	}
	return appointment.Actor{}, false
}

func requireActor(w http.ResponseWriter, r *http.Request) (appointment.Actor, bool) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", "caller identity headers are missing or invalid")
	}
	return actor, ok
}

func requireDoctor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := headerUUID(r, HeaderDoctorID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", HeaderDoctorID+" header must be a valid UUID")
	}
	return id, ok
}

func requirePatient(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := headerUUID(r, HeaderPatientID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", HeaderPatientID+" header must be a valid UUID")
	}
	return id, ok
}

// requireDoctorSelf checks the caller is the doctor named in the path.
func requireDoctorSelf(w http.ResponseWriter, r *http.Request, doctorID uuid.UUID) bool {
	caller, ok := requireDoctor(w, r)
	if !ok {
		return false
	}
	if caller != doctorID {
		writeError(w, http.StatusForbidden, "forbidden", "doctors may only manage their own schedule")
		return false
	}
	return true
}
