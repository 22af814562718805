package models

import "time"

// Beneficiary is a resident of the care facility, the subject of all
// clinical, social, and administrative records.
type Beneficiary struct {
	ID               string    `db:"id" json:"id"`
	FullName         string    `db:"full_name" json:"fullName"`
	Age              int       `db:"age" json:"age"`
	MedicalDiagnosis string    `db:"medical_diagnosis" json:"medicalDiagnosis"`
	SocialStatus     string    `db:"social_status" json:"socialStatus"`
	Notes            string    `db:"notes" json:"notes"`
	AdmissionDate    time.Time `db:"admission_date" json:"admissionDate"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// BeneficiaryFilter captures filtering criteria for listing beneficiaries.
type BeneficiaryFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// ClinicalRiskFlags is the read-only medical status snapshot surfaced to
// doctors reviewing a pending leave request. Advisory only.
type ClinicalRiskFlags struct {
	Infection      bool   `json:"infection"`
	UnstableVitals bool   `json:"unstableVitals"`
	Notes          string `json:"notes"`
}
