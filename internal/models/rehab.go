package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// GoalType enumerates rehabilitation goal categories.
type GoalType string

const (
	GoalTypeMedical       GoalType = "medical"
	GoalTypeSocial        GoalType = "social"
	GoalTypePsychological GoalType = "psychological"
	GoalTypePhysiotherapy GoalType = "physiotherapy"
	GoalTypeOccupational  GoalType = "occupational"
)

// GoalStatus captures progress states of a single goal.
type GoalStatus string

const (
	GoalStatusPending    GoalStatus = "pending"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusAchieved   GoalStatus = "achieved"
	GoalStatusDelayed    GoalStatus = "delayed"
)

// SmartGoal is a specific, measurable, time-bound rehabilitation objective.
type SmartGoal struct {
	ID               string     `json:"id"`
	Type             GoalType   `json:"type"`
	Title            string     `json:"title"`
	MeasureOfSuccess string     `json:"measureOfSuccess"`
	TargetDate       string     `json:"targetDate"`
	Progress         int        `json:"progress"`
	Status           GoalStatus `json:"status"`
	AssignedTo       string     `json:"assignedTo"`
}

// SmartGoals is the ordered goal list, persisted as JSONB.
type SmartGoals []SmartGoal

// Value marshals goals to JSON for persistence.
func (g SmartGoals) Value() (driver.Value, error) {
	if g == nil {
		g = SmartGoals{}
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal smart goals: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the goal slice.
func (g *SmartGoals) Scan(value interface{}) error {
	if value == nil {
		*g = SmartGoals{}
		return nil
	}
	data, err := jsonbBytes(value, "SmartGoals")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*g = SmartGoals{}
		return nil
	}
	return json.Unmarshal(data, g)
}

// ApprovalStatus is the state of one role's plan sign-off.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
)

// PlanApproval is one role's sign-off slot. Approvals are terminal: once
// granted there is no unapprove transition.
type PlanApproval struct {
	Role       UserRole       `json:"role"`
	Status     ApprovalStatus `json:"status"`
	ApprovedBy string         `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time     `json:"approvedAt,omitempty"`
}

// PlanApprovals holds exactly three sign-off slots (doctor, social worker,
// director), persisted as JSONB.
type PlanApprovals []PlanApproval

// NewPlanApprovals returns the fixed pending slots for a fresh plan.
func NewPlanApprovals() PlanApprovals {
	return PlanApprovals{
		{Role: RoleDoctor, Status: ApprovalStatusPending},
		{Role: RoleSocialWorker, Status: ApprovalStatusPending},
		{Role: RoleDirector, Status: ApprovalStatusPending},
	}
}

// Get returns the slot for the given role.
func (a PlanApprovals) Get(role UserRole) (PlanApproval, bool) {
	for _, approval := range a {
		if approval.Role == role {
			return approval, true
		}
	}
	return PlanApproval{}, false
}

// PeersApproved reports whether the non-director slots are all approved.
func (a PlanApprovals) PeersApproved() bool {
	for _, approval := range a {
		if approval.Role == RoleDirector {
			continue
		}
		if approval.Status != ApprovalStatusApproved {
			return false
		}
	}
	return true
}

// AnyApproved reports whether at least one slot has been approved.
func (a PlanApprovals) AnyApproved() bool {
	for _, approval := range a {
		if approval.Status == ApprovalStatusApproved {
			return true
		}
	}
	return false
}

// Complete reports whether all three slots are approved.
func (a PlanApprovals) Complete() bool {
	if len(a) == 0 {
		return false
	}
	for _, approval := range a {
		if approval.Status != ApprovalStatusApproved {
			return false
		}
	}
	return true
}

// Value marshals approvals to JSON for persistence.
func (a PlanApprovals) Value() (driver.Value, error) {
	if a == nil {
		a = NewPlanApprovals()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal plan approvals: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the approvals slice.
func (a *PlanApprovals) Scan(value interface{}) error {
	if value == nil {
		*a = NewPlanApprovals()
		return nil
	}
	data, err := jsonbBytes(value, "PlanApprovals")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*a = NewPlanApprovals()
		return nil
	}
	return json.Unmarshal(data, a)
}

// PlanStatus is the caller-managed plan lifecycle. Full approval does not
// flip it automatically.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusArchived  PlanStatus = "archived"
)

// MedicalContext is the diagnosis snapshot captured at plan-authoring time.
type MedicalContext struct {
	Diagnosis string   `json:"diagnosis"`
	Needs     []string `json:"needs"`
}

// Value marshals the context to JSON for persistence.
func (c MedicalContext) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal medical context: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the context struct.
func (c *MedicalContext) Scan(value interface{}) error {
	if value == nil {
		*c = MedicalContext{}
		return nil
	}
	data, err := jsonbBytes(value, "MedicalContext")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*c = MedicalContext{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// RiskLevel grades the social risk captured in the plan context.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SocialContext is the social snapshot captured at plan-authoring time.
type SocialContext struct {
	EconomicStatus string    `json:"economicStatus"`
	RiskLevel      RiskLevel `json:"riskLevel"`
}

// Value marshals the context to JSON for persistence.
func (c SocialContext) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal social context: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the context struct.
func (c *SocialContext) Scan(value interface{}) error {
	if value == nil {
		*c = SocialContext{}
		return nil
	}
	data, err := jsonbBytes(value, "SocialContext")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*c = SocialContext{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// RehabPlan is a rehabilitation plan owned by one beneficiary. The medical
// and social contexts are snapshots: later changes to the beneficiary do not
// retroactively alter a stored plan.
type RehabPlan struct {
	ID              string         `db:"id" json:"id"`
	BeneficiaryID   string         `db:"beneficiary_id" json:"beneficiaryId"`
	BeneficiaryName string         `db:"beneficiary_name" json:"beneficiaryName"`
	MedicalContext  MedicalContext `db:"medical_context" json:"medicalContext"`
	SocialContext   SocialContext  `db:"social_context" json:"socialContext"`
	Goals           SmartGoals     `db:"goals" json:"goals"`
	Approvals       PlanApprovals  `db:"approvals" json:"approvals"`
	Status          PlanStatus     `db:"status" json:"status"`
	CreatedBy       string         `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// PlanFilter constrains plan listing queries.
type PlanFilter struct {
	BeneficiaryID string
	Status        []PlanStatus
	Limit         int
	Offset        int
}

// GoalSuggestion is a derived goal candidate surfaced by the suggestion
// rules. Advisory: accepting one is the same as adding the goal manually.
type GoalSuggestion struct {
	Type   GoalType `json:"type"`
	Title  string   `json:"title"`
	Reason string   `json:"reason"`
}
