package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/validation"
)

type YesNo string

const (
	Yes     YesNo = "yes"
	No      YesNo = "no"
	Unknown YesNo = "unknown"
)

func (v YesNo) valid() bool {
	return v == Yes || v == No || v == Unknown
}

type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityNone, SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// Record is the single medical history kept per patient.
type Record struct {
	PatientID         uuid.UUID
	LastUpdatedBy     *uuid.UUID
	HasSurgery        YesNo
	Smoker            YesNo
	AlcoholUse        YesNo
	Allergies         string
	ChronicConditions string
	PainSeverity      Severity
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Update replaces the patient's history. Empty enum fields fall back to
// "unknown" and "none".
type Update struct {
	HasSurgery        YesNo
	Smoker            YesNo
	AlcoholUse        YesNo
	Allergies         string
	ChronicConditions string
	PainSeverity      Severity
	Notes             string
}

const maxAllergiesLen = 255

func (u Update) normalize() (Update, error) {
	for _, f := range []struct {
		name string
		v    *YesNo
	}{
		{"has_surgery", &u.HasSurgery},
		{"smoker", &u.Smoker},
		{"alcohol_use", &u.AlcoholUse},
	} {
		if *f.v == "" {
			*f.v = Unknown
		}
		if !f.v.valid() {
			return u, validation.Invalid(f.name, "must be one of yes, no, unknown")
		}
	}

	if u.PainSeverity == "" {
		u.PainSeverity = SeverityNone
	}
	if !u.PainSeverity.valid() {
		return u, validation.Invalid("pain_severity", "must be one of none, mild, moderate, severe")
	}
	if len(u.Allergies) > maxAllergiesLen {
		return u, validation.Invalid("allergies", "must be at most 255 characters")
	}
	return u, nil
}
