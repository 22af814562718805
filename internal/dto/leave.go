package dto

import "github.com/amal-center/rehab-center-api/internal/models"

// CreateLeaveRequest is the payload a social worker submits to open a leave
// request.
type CreateLeaveRequest struct {
	BeneficiaryID string           `json:"beneficiaryId"`
	Type          models.LeaveType `json:"type"`
	StartDate     string           `json:"startDate"`
	EndDate       string           `json:"endDate"`
	GuardianName  string           `json:"guardianName"`
	GuardianPhone string           `json:"guardianPhone"`
	Reason        string           `json:"reason"`
}

// LeaveDecisionRequest carries the reviewer's optional note.
type LeaveDecisionRequest struct {
	Note string `json:"note"`
}

// LeaveQuery mirrors supported listing filters.
type LeaveQuery struct {
	BeneficiaryID string
	Status        []models.LeaveStatus
}

// LeaveDetailResponse pairs a request with the advisory risk flags shown to
// the reviewing doctor. Flags are nil outside medical review.
type LeaveDetailResponse struct {
	Request   *models.LeaveRequest      `json:"request"`
	RiskFlags *models.ClinicalRiskFlags `json:"riskFlags,omitempty"`
}
