package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LeaveType enumerates reasons a beneficiary may leave the facility.
type LeaveType string

const (
	LeaveTypeHomeVisit LeaveType = "HOME_VISIT"
	LeaveTypeHospital  LeaveType = "HOSPITAL"
	LeaveTypeOuting    LeaveType = "OUTING"
	LeaveTypeOther     LeaveType = "OTHER"
)

// LeaveStatus captures the leave request lifecycle. The approval engine
// drives PENDING_MEDICAL through APPROVED/REJECTED; ACTIVE, COMPLETED and
// OVERDUE are flipped by external attendance tracking.
type LeaveStatus string

const (
	LeaveStatusPendingSocial   LeaveStatus = "PENDING_SOCIAL"
	LeaveStatusPendingMedical  LeaveStatus = "PENDING_MEDICAL"
	LeaveStatusPendingDirector LeaveStatus = "PENDING_DIRECTOR"
	LeaveStatusApproved        LeaveStatus = "APPROVED"
	LeaveStatusRejected        LeaveStatus = "REJECTED"
	LeaveStatusActive          LeaveStatus = "ACTIVE"
	LeaveStatusCompleted       LeaveStatus = "COMPLETED"
	LeaveStatusOverdue         LeaveStatus = "OVERDUE"
)

// LeaveActionKind enumerates audit trail entry kinds.
type LeaveActionKind string

const (
	LeaveActionRequest LeaveActionKind = "request"
	LeaveActionApprove LeaveActionKind = "approve"
	LeaveActionReject  LeaveActionKind = "reject"
	LeaveActionCancel  LeaveActionKind = "cancel"
)

// LeaveAction is one append-only audit trail entry.
type LeaveAction struct {
	ActorID   string          `json:"actorId"`
	ActorName string          `json:"actorName"`
	Role      UserRole        `json:"role"`
	Action    LeaveActionKind `json:"action"`
	Timestamp time.Time       `json:"timestamp"`
	Note      string          `json:"note,omitempty"`
}

// LeaveHistory is the ordered audit trail, persisted as JSONB.
type LeaveHistory []LeaveAction

// Value marshals the history to JSON for persistence.
func (h LeaveHistory) Value() (driver.Value, error) {
	if h == nil {
		h = LeaveHistory{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal leave history: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the history slice.
func (h *LeaveHistory) Scan(value interface{}) error {
	if value == nil {
		*h = LeaveHistory{}
		return nil
	}
	data, err := jsonbBytes(value, "LeaveHistory")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*h = LeaveHistory{}
		return nil
	}
	return json.Unmarshal(data, h)
}

// MedicalClearance is the immutable snapshot of the doctor's sign-off,
// written exactly once when the request leaves medical review.
type MedicalClearance struct {
	ClearedBy   string    `json:"clearedBy"`
	ClearedAt   time.Time `json:"clearedAt"`
	IsFit       bool      `json:"isFit"`
	Precautions string    `json:"precautions,omitempty"`
}

// Value marshals the clearance to JSON for persistence.
func (c MedicalClearance) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal medical clearance: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the clearance struct.
func (c *MedicalClearance) Scan(value interface{}) error {
	if value == nil {
		*c = MedicalClearance{}
		return nil
	}
	data, err := jsonbBytes(value, "MedicalClearance")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*c = MedicalClearance{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// LeaveRequest represents a request for a beneficiary to leave the facility.
type LeaveRequest struct {
	ID              string            `db:"id" json:"id"`
	BeneficiaryID   string            `db:"beneficiary_id" json:"beneficiaryId"`
	BeneficiaryName string            `db:"beneficiary_name" json:"beneficiaryName"`
	Type            LeaveType         `db:"type" json:"type"`
	RequestDate     time.Time         `db:"request_date" json:"requestDate"`
	StartDate       time.Time         `db:"start_date" json:"startDate"`
	EndDate         time.Time         `db:"end_date" json:"endDate"`
	DurationDays    int               `db:"duration_days" json:"durationDays"`
	GuardianName    string            `db:"guardian_name" json:"guardianName"`
	GuardianPhone   string            `db:"guardian_phone" json:"guardianPhone"`
	Reason          string            `db:"reason" json:"reason"`
	Status          LeaveStatus       `db:"status" json:"status"`
	Clearance       *MedicalClearance `db:"medical_clearance" json:"medicalClearance,omitempty"`
	History         LeaveHistory      `db:"history" json:"history"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updatedAt"`
}

// LeaveFilter constrains leave request listing queries.
type LeaveFilter struct {
	BeneficiaryID string
	Status        []LeaveStatus
	Type          LeaveType
	Limit         int
	Offset        int
}

func jsonbBytes(value interface{}, target string) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T for %s", value, target)
	}
}
