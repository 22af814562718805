package dto

import "github.com/amal-center/rehab-center-api/internal/models"

// AdmissionDraft is the candidate clinical snapshot evaluated by the
// validation rules before an admission record may be persisted.
type AdmissionDraft struct {
	BeneficiaryID    string                   `json:"beneficiaryId"`
	PrimaryDiagnosis models.DiagnosisCategory `json:"primaryDiagnosis"`
	IsEpileptic      bool                     `json:"isEpileptic"`
	Vitals           *models.VitalSigns       `json:"vitals,omitempty"`
	History          models.MedicalHistory    `json:"history"`
	SeizureHistory   *models.SeizureHistory   `json:"seizureHistory,omitempty"`
	CheckupComment   string                   `json:"checkupComment"`
}

// AdmissionResponse pairs the persisted profile with the validation outcome
// so the caller can render warnings even on success.
type AdmissionResponse struct {
	Profile    *models.MedicalProfile  `json:"profile"`
	Validation models.ValidationResult `json:"validation"`
}
