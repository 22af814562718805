package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DiagnosisCategory enumerates primary admission diagnoses.
type DiagnosisCategory string

const (
	DiagnosisCerebralPalsy          DiagnosisCategory = "CP"
	DiagnosisDownSyndrome           DiagnosisCategory = "DOWNS"
	DiagnosisAutism                 DiagnosisCategory = "AUTISM"
	DiagnosisIntellectualDisability DiagnosisCategory = "INTELLECTUAL_DISABILITY"
	DiagnosisOther                  DiagnosisCategory = "OTHER"
)

// VitalSigns is one set of measured vitals.
type VitalSigns struct {
	Temperature     float64   `json:"temperature"`
	Pulse           int       `json:"pulse"`
	SystolicBP      int       `json:"systolicBp"`
	DiastolicBP     int       `json:"diastolicBp"`
	RespiratoryRate int       `json:"respiratoryRate"`
	SpO2            int       `json:"spo2"`
	MeasuredAt      time.Time `json:"measuredAt"`
}

// Value marshals vitals to JSON for persistence.
func (v VitalSigns) Value() (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal vital signs: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the vitals struct.
func (v *VitalSigns) Scan(value interface{}) error {
	if value == nil {
		*v = VitalSigns{}
		return nil
	}
	data, err := jsonbBytes(value, "VitalSigns")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*v = VitalSigns{}
		return nil
	}
	return json.Unmarshal(data, v)
}

// SeizureHistory is the structured epilepsy sub-record.
type SeizureHistory struct {
	HasSeizures     bool   `json:"hasSeizures"`
	LastSeizureDate string `json:"lastSeizureDate,omitempty"`
	Frequency       string `json:"frequency,omitempty"`
	Medication      string `json:"medication,omitempty"`
}

// MedicalHistory groups the free-text history buckets recorded at admission.
type MedicalHistory struct {
	ChronicDiseases []string        `json:"chronicDiseases"`
	Surgeries       []string        `json:"surgeries"`
	Allergies       []string        `json:"allergies"`
	FamilyHistory   []string        `json:"familyHistory"`
	SeizureHistory  *SeizureHistory `json:"seizureHistory,omitempty"`
}

// Value marshals the history to JSON for persistence.
func (h MedicalHistory) Value() (driver.Value, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal medical history: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the history struct.
func (h *MedicalHistory) Scan(value interface{}) error {
	if value == nil {
		*h = MedicalHistory{}
		return nil
	}
	data, err := jsonbBytes(value, "MedicalHistory")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*h = MedicalHistory{}
		return nil
	}
	return json.Unmarshal(data, h)
}

// InfectionStatus carries the infection-control outcome derived from the
// admission validation run.
type InfectionStatus struct {
	SuspectedInfection   bool   `json:"suspectedInfection"`
	IsolationRecommended bool   `json:"isolationRecommended"`
	IsolationReason      string `json:"isolationReason,omitempty"`
}

// Value marshals the status to JSON for persistence.
func (s InfectionStatus) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal infection status: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the status struct.
func (s *InfectionStatus) Scan(value interface{}) error {
	if value == nil {
		*s = InfectionStatus{}
		return nil
	}
	data, err := jsonbBytes(value, "InfectionStatus")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = InfectionStatus{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// MedicalProfile is the write-once-per-admission clinical snapshot.
type MedicalProfile struct {
	ID               string            `db:"id" json:"id"`
	BeneficiaryID    string            `db:"beneficiary_id" json:"beneficiaryId"`
	AdmissionDate    time.Time         `db:"admission_date" json:"admissionDate"`
	PrimaryDiagnosis DiagnosisCategory `db:"primary_diagnosis" json:"primaryDiagnosis"`
	IsEpileptic      bool              `db:"is_epileptic" json:"isEpileptic"`
	LatestVitals     VitalSigns        `db:"latest_vitals" json:"latestVitals"`
	History          MedicalHistory    `db:"history" json:"history"`
	Infection        InfectionStatus   `db:"infection_status" json:"infectionStatus"`
	CheckupComment   string            `db:"checkup_comment" json:"checkupComment,omitempty"`
	CreatedBy        string            `db:"created_by" json:"createdBy"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
}

// ValidationActions are the derived safety actions from an admission check.
type ValidationActions struct {
	RecommendIsolation    bool `json:"recommendIsolation"`
	RequireSeizureHistory bool `json:"requireSeizureHistory"`
}

// ValidationResult is the full outcome of one admission validation run.
// It is a normal return value: failed rules populate Errors, they never panic.
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   map[string]string `json:"errors"`
	Warnings []string          `json:"warnings"`
	Actions  ValidationActions `json:"actions"`
}
