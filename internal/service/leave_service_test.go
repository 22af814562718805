package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/internal/repository"
	"github.com/amal-center/rehab-center-api/pkg/config"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
)

type leaveRepoStub struct {
	requests map[string]*models.LeaveRequest
	filter   models.LeaveFilter
}

func newLeaveRepoStub() *leaveRepoStub {
	return &leaveRepoStub{requests: make(map[string]*models.LeaveRequest)}
}

func (s *leaveRepoStub) Create(ctx context.Context, request *models.LeaveRequest) error {
	if request.ID == "" {
		request.ID = "leave-1"
	}
	clone := *request
	s.requests[request.ID] = &clone
	return nil
}

func (s *leaveRepoStub) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	if request, ok := s.requests[id]; ok {
		clone := *request
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *leaveRepoStub) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	s.filter = filter
	result := make([]models.LeaveRequest, 0, len(s.requests))
	for _, request := range s.requests {
		result = append(result, *request)
	}
	return result, nil
}

func (s *leaveRepoStub) ApplyTransition(ctx context.Context, params repository.LeaveTransitionParams) error {
	request, ok := s.requests[params.ID]
	if !ok || request.Status != params.FromStatus {
		return sql.ErrNoRows
	}
	request.Status = params.ToStatus
	request.History = params.History
	request.UpdatedAt = params.UpdatedAt
	if params.Clearance != nil {
		request.Clearance = params.Clearance
	}
	return nil
}

type beneficiaryFinderStub struct {
	beneficiaries map[string]*models.Beneficiary
}

func (s *beneficiaryFinderStub) FindByID(ctx context.Context, id string) (*models.Beneficiary, error) {
	if b, ok := s.beneficiaries[id]; ok {
		clone := *b
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type riskProviderStub struct {
	flags *models.ClinicalRiskFlags
	calls int
}

func (s *riskProviderStub) RiskFlags(ctx context.Context, beneficiaryID string) (*models.ClinicalRiskFlags, error) {
	s.calls++
	return s.flags, nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func claimsFor(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-" + string(role), Role: role, FullName: "User " + string(role)}
}

func newTestLeaveService(repo *leaveRepoStub, risk ClinicalRiskProvider, audit *auditStub) *LeaveService {
	finder := &beneficiaryFinderStub{beneficiaries: map[string]*models.Beneficiary{
		"ben-1": {ID: "ben-1", FullName: "Ahmed", Age: 15, Active: true},
	}}
	authority := NewAuthority(config.WorkflowConfig{AdminActsAsDirector: true})
	return NewLeaveService(repo, finder, risk, authority, audit, nil, nil)
}

func pendingRequest(status models.LeaveStatus) *models.LeaveRequest {
	return &models.LeaveRequest{
		ID:              "leave-1",
		BeneficiaryID:   "ben-1",
		BeneficiaryName: "Ahmed",
		Type:            models.LeaveTypeHomeVisit,
		Status:          status,
		History: models.LeaveHistory{{
			ActorID: "sw-1", Role: models.RoleSocialWorker,
			Action: models.LeaveActionRequest, Timestamp: time.Now().UTC().Add(-time.Hour),
		}},
	}
}

func TestLeaveServiceCreateStartsInMedicalReview(t *testing.T) {
	repo := newLeaveRepoStub()
	audit := &auditStub{}
	svc := newTestLeaveService(repo, nil, audit)

	request, err := svc.Create(context.Background(), dto.CreateLeaveRequest{
		BeneficiaryID: "ben-1",
		Type:          models.LeaveTypeHomeVisit,
		StartDate:     "2026-09-01",
		EndDate:       "2026-09-03",
		GuardianName:  "Guardian",
		GuardianPhone: "0500000000",
		Reason:        "family visit",
	}, claimsFor(models.RoleSocialWorker))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusPendingMedical, request.Status)
	require.Equal(t, 3, request.DurationDays)
	require.Len(t, request.History, 1)
	require.Equal(t, models.LeaveActionRequest, request.History[0].Action)
	require.Len(t, audit.logs, 1)
}

func TestLeaveServiceCreateRejectsNonSocialWorker(t *testing.T) {
	svc := newTestLeaveService(newLeaveRepoStub(), nil, &auditStub{})

	_, err := svc.Create(context.Background(), dto.CreateLeaveRequest{
		BeneficiaryID: "ben-1",
		Type:          models.LeaveTypeHomeVisit,
		StartDate:     "2026-09-01",
		EndDate:       "2026-09-02",
		GuardianName:  "Guardian",
		GuardianPhone: "0500000000",
		Reason:        "visit",
	}, claimsFor(models.RoleDoctor))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLeaveServiceFullApprovalChain(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusPendingMedical)
	svc := newTestLeaveService(repo, nil, &auditStub{})

	request, err := svc.Approve(context.Background(), "leave-1", dto.LeaveDecisionRequest{Note: "fit for travel"}, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusPendingDirector, request.Status)
	require.NotNil(t, request.Clearance)
	require.True(t, request.Clearance.IsFit)
	require.Equal(t, "fit for travel", request.Clearance.Precautions)
	require.Len(t, request.History, 2)

	request, err = svc.Approve(context.Background(), "leave-1", dto.LeaveDecisionRequest{}, claimsFor(models.RoleDirector))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusApproved, request.Status)
	require.Len(t, request.History, 3)

	// History is append-only and ordered.
	require.Equal(t, models.LeaveActionRequest, request.History[0].Action)
	require.Equal(t, models.LeaveActionApprove, request.History[1].Action)
	require.Equal(t, models.LeaveActionApprove, request.History[2].Action)
}

func TestLeaveServiceDirectorCannotSkipMedicalReview(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusPendingMedical)
	svc := newTestLeaveService(repo, nil, &auditStub{})

	_, err := svc.Approve(context.Background(), "leave-1", dto.LeaveDecisionRequest{}, claimsFor(models.RoleDirector))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	stored, _ := repo.GetByID(context.Background(), "leave-1")
	require.Equal(t, models.LeaveStatusPendingMedical, stored.Status)
	require.Len(t, stored.History, 1)
}

func TestLeaveServiceRejectIsTerminal(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusPendingMedical)
	svc := newTestLeaveService(repo, nil, &auditStub{})

	request, err := svc.Reject(context.Background(), "leave-1", dto.LeaveDecisionRequest{Note: "active infection"}, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusRejected, request.Status)
	require.Nil(t, request.Clearance)

	_, err = svc.Approve(context.Background(), "leave-1", dto.LeaveDecisionRequest{}, claimsFor(models.RoleDirector))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestLeaveServiceApproveOnTerminalStateFails(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusApproved)
	svc := newTestLeaveService(repo, nil, &auditStub{})

	_, err := svc.Approve(context.Background(), "leave-1", dto.LeaveDecisionRequest{}, claimsFor(models.RoleDirector))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestLeaveServiceAdminSatisfiesDirectorGate(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusPendingDirector)
	svc := newTestLeaveService(repo, nil, &auditStub{})

	request, err := svc.Approve(context.Background(), "leave-1", dto.LeaveDecisionRequest{}, claimsFor(models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusApproved, request.Status)
}

func TestLeaveServiceAdminGateDisabledByPolicy(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusPendingDirector)
	finder := &beneficiaryFinderStub{beneficiaries: map[string]*models.Beneficiary{}}
	authority := NewAuthority(config.WorkflowConfig{AdminActsAsDirector: false})
	svc := NewLeaveService(repo, finder, nil, authority, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "leave-1", dto.LeaveDecisionRequest{}, claimsFor(models.RoleAdmin))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLeaveServiceGetAttachesRiskFlagsForDoctor(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusPendingMedical)
	risk := &riskProviderStub{flags: &models.ClinicalRiskFlags{Infection: true, Notes: "isolation active"}}
	svc := newTestLeaveService(repo, risk, &auditStub{})

	detail, err := svc.Get(context.Background(), "leave-1", claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.NotNil(t, detail.RiskFlags)
	require.True(t, detail.RiskFlags.Infection)
	require.Equal(t, 1, risk.calls)

	detail, err = svc.Get(context.Background(), "leave-1", claimsFor(models.RoleSocialWorker))
	require.NoError(t, err)
	require.Nil(t, detail.RiskFlags)
	require.Equal(t, 1, risk.calls)
}

func TestLeaveServiceListScopesClinicalRoles(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusPendingMedical)
	svc := newTestLeaveService(repo, nil, &auditStub{})

	_, err := svc.List(context.Background(), dto.LeaveQuery{}, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.ElementsMatch(t, clinicalVisibleStatuses, repo.filter.Status)

	_, err = svc.List(context.Background(), dto.LeaveQuery{}, claimsFor(models.RoleDirector))
	require.NoError(t, err)
	require.Empty(t, repo.filter.Status)
}

func TestLeaveServiceListClinicalNoOverlapIsEmpty(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusRejected)
	svc := newTestLeaveService(repo, nil, &auditStub{})

	// A doctor asking only for statuses outside the clinical window gets
	// nothing back, not the whole window.
	requests, err := svc.List(context.Background(), dto.LeaveQuery{
		Status: []models.LeaveStatus{models.LeaveStatusRejected},
	}, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.Empty(t, requests)
	require.Empty(t, repo.filter.Status)
}

func TestLeaveServiceStaleTransitionConflicts(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.requests["leave-1"] = pendingRequest(models.LeaveStatusPendingDirector)
	svc := newTestLeaveService(repo, nil, &auditStub{})

	// First director decision wins.
	_, err := svc.Approve(context.Background(), "leave-1", dto.LeaveDecisionRequest{}, claimsFor(models.RoleDirector))
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), "leave-1", dto.LeaveDecisionRequest{}, claimsFor(models.RoleDirector))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}
