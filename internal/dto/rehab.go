package dto

import "github.com/amal-center/rehab-center-api/internal/models"

// CreatePlanRequest opens a draft plan for one beneficiary. The medical and
// social context snapshots are captured server-side at creation time.
type CreatePlanRequest struct {
	BeneficiaryID string   `json:"beneficiaryId"`
	Needs         []string `json:"needs"`
}

// GoalRequest is the payload for adding or updating a single goal.
type GoalRequest struct {
	Type             models.GoalType   `json:"type"`
	Title            string            `json:"title"`
	MeasureOfSuccess string            `json:"measureOfSuccess"`
	TargetDate       string            `json:"targetDate"`
	Progress         *int              `json:"progress,omitempty"`
	Status           models.GoalStatus `json:"status,omitempty"`
	AssignedTo       string            `json:"assignedTo"`
}

// PlanQuery mirrors supported listing filters.
type PlanQuery struct {
	BeneficiaryID string
	Status        []models.PlanStatus
}

// UpdatePlanStatusRequest moves a plan through its lifecycle explicitly.
type UpdatePlanStatusRequest struct {
	Status models.PlanStatus `json:"status"`
}

// PlanResponse decorates a plan with derived approval state.
type PlanResponse struct {
	Plan              *models.RehabPlan       `json:"plan"`
	ApprovalsComplete bool                    `json:"approvalsComplete"`
	Suggestions       []models.GoalSuggestion `json:"suggestions,omitempty"`
}
