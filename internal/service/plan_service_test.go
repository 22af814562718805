package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/pkg/config"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
)

type planRepoStub struct {
	plans map[string]*models.RehabPlan
}

func newPlanRepoStub() *planRepoStub {
	return &planRepoStub{plans: make(map[string]*models.RehabPlan)}
}

func (s *planRepoStub) Create(ctx context.Context, plan *models.RehabPlan) error {
	if plan.ID == "" {
		plan.ID = "plan-1"
	}
	if plan.Approvals == nil {
		plan.Approvals = models.NewPlanApprovals()
	}
	if plan.Status == "" {
		plan.Status = models.PlanStatusDraft
	}
	clone := *plan
	s.plans[plan.ID] = &clone
	return nil
}

func (s *planRepoStub) GetByID(ctx context.Context, id string) (*models.RehabPlan, error) {
	if plan, ok := s.plans[id]; ok {
		clone := *plan
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *planRepoStub) List(ctx context.Context, filter models.PlanFilter) ([]models.RehabPlan, error) {
	result := make([]models.RehabPlan, 0, len(s.plans))
	for _, plan := range s.plans {
		result = append(result, *plan)
	}
	return result, nil
}

func (s *planRepoStub) UpdateGoals(ctx context.Context, id string, goals models.SmartGoals, updatedAt time.Time) error {
	plan, ok := s.plans[id]
	if !ok {
		return sql.ErrNoRows
	}
	plan.Goals = goals
	plan.UpdatedAt = updatedAt
	return nil
}

func (s *planRepoStub) UpdateApprovals(ctx context.Context, id string, approvals models.PlanApprovals, updatedAt time.Time) error {
	plan, ok := s.plans[id]
	if !ok {
		return sql.ErrNoRows
	}
	plan.Approvals = approvals
	plan.UpdatedAt = updatedAt
	return nil
}

func (s *planRepoStub) UpdateStatus(ctx context.Context, id string, status models.PlanStatus, updatedAt time.Time) error {
	plan, ok := s.plans[id]
	if !ok {
		return sql.ErrNoRows
	}
	plan.Status = status
	plan.UpdatedAt = updatedAt
	return nil
}

func newTestPlanService(repo *planRepoStub, cfg config.WorkflowConfig) *PlanService {
	finder := &beneficiaryFinderStub{beneficiaries: map[string]*models.Beneficiary{
		"ben-1": {
			ID: "ben-1", FullName: "Ahmed", Age: 15,
			MedicalDiagnosis: "cerebral palsy with speech difficulties",
			SocialStatus:     "low income family",
			Active:           true,
		},
	}}
	return NewPlanService(repo, finder, NewAuthority(cfg), &auditStub{}, cfg, nil)
}

func seededPlan() *models.RehabPlan {
	return &models.RehabPlan{
		ID:              "plan-1",
		BeneficiaryID:   "ben-1",
		BeneficiaryName: "Ahmed",
		Goals:           models.SmartGoals{},
		Approvals:       models.NewPlanApprovals(),
		Status:          models.PlanStatusDraft,
	}
}

func TestPlanServiceCreateSnapshotsContextAndSuggests(t *testing.T) {
	repo := newPlanRepoStub()
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true})

	response, err := svc.Create(context.Background(), dto.CreatePlanRequest{
		BeneficiaryID: "ben-1",
		Needs:         []string{"physiotherapy"},
	}, claimsFor(models.RoleSocialWorker))
	require.NoError(t, err)
	require.Equal(t, "cerebral palsy with speech difficulties", response.Plan.MedicalContext.Diagnosis)
	require.Equal(t, models.RiskMedium, response.Plan.SocialContext.RiskLevel)
	require.Equal(t, models.PlanStatusDraft, response.Plan.Status)
	require.Len(t, response.Plan.Approvals, 3)

	// Diagnosis carries paralysis and speech markers, social status carries
	// low income, and the beneficiary is a minor: all four rules fire.
	require.Len(t, response.Suggestions, 4)
	require.Equal(t, models.GoalTypePhysiotherapy, response.Suggestions[0].Type)
}

func TestPlanServiceDirectorGateRequiresPeers(t *testing.T) {
	repo := newPlanRepoStub()
	repo.plans["plan-1"] = seededPlan()
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true})

	_, err := svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleDirector))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	_, err = svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleDoctor))
	require.NoError(t, err)

	// One peer is not enough.
	_, err = svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleDirector))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	_, err = svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleSocialWorker))
	require.NoError(t, err)

	response, err := svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleDirector))
	require.NoError(t, err)
	require.True(t, response.ApprovalsComplete)
	require.Equal(t, models.PlanStatusDraft, response.Plan.Status)
}

func TestPlanServicePeersApproveInAnyOrder(t *testing.T) {
	repo := newPlanRepoStub()
	repo.plans["plan-1"] = seededPlan()
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true})

	_, err := svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleSocialWorker))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleDoctor))
	require.NoError(t, err)

	response, err := svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleAdmin))
	require.NoError(t, err)
	require.True(t, response.ApprovalsComplete)
}

func TestPlanServiceApprovalsAreTerminal(t *testing.T) {
	repo := newPlanRepoStub()
	repo.plans["plan-1"] = seededPlan()
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true})

	_, err := svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleDoctor))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleDoctor))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceNurseHoldsNoApprovalSlot(t *testing.T) {
	repo := newPlanRepoStub()
	repo.plans["plan-1"] = seededPlan()
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true})

	_, err := svc.Approve(context.Background(), "plan-1", claimsFor(models.RoleNurse))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceGoalLifecycle(t *testing.T) {
	repo := newPlanRepoStub()
	repo.plans["plan-1"] = seededPlan()
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true})

	plan, err := svc.AddGoal(context.Background(), "plan-1", dto.GoalRequest{
		Type:             models.GoalTypePhysiotherapy,
		Title:            "Improve range of motion",
		MeasureOfSuccess: "15 degree gain",
		TargetDate:       "2026-12-01",
	}, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.Len(t, plan.Goals, 1)
	require.Equal(t, models.GoalStatusPending, plan.Goals[0].Status)
	goalID := plan.Goals[0].ID
	require.NotEmpty(t, goalID)

	progress := 40
	plan, err = svc.UpdateGoal(context.Background(), "plan-1", goalID, dto.GoalRequest{
		Type:     models.GoalTypePhysiotherapy,
		Title:    "Improve range of motion",
		Progress: &progress,
		Status:   models.GoalStatusInProgress,
	}, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.Equal(t, 40, plan.Goals[0].Progress)
	require.Equal(t, models.GoalStatusInProgress, plan.Goals[0].Status)

	plan, err = svc.RemoveGoal(context.Background(), "plan-1", goalID, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.Empty(t, plan.Goals)
}

func TestPlanServiceGoalsEditableAfterApprovalByDefault(t *testing.T) {
	repo := newPlanRepoStub()
	plan := seededPlan()
	now := time.Now().UTC()
	for i := range plan.Approvals {
		plan.Approvals[i].Status = models.ApprovalStatusApproved
		plan.Approvals[i].ApprovedAt = &now
	}
	repo.plans["plan-1"] = plan
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true})

	_, err := svc.AddGoal(context.Background(), "plan-1", dto.GoalRequest{
		Type:  models.GoalTypeSocial,
		Title: "Assistive device request",
	}, claimsFor(models.RoleSocialWorker))
	require.NoError(t, err)
}

func TestPlanServiceGoalLockPolicy(t *testing.T) {
	repo := newPlanRepoStub()
	plan := seededPlan()
	now := time.Now().UTC()
	for i := range plan.Approvals {
		plan.Approvals[i].Status = models.ApprovalStatusApproved
		plan.Approvals[i].ApprovedAt = &now
	}
	repo.plans["plan-1"] = plan
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true, LockGoalsAfterApproval: true})

	_, err := svc.AddGoal(context.Background(), "plan-1", dto.GoalRequest{
		Type:  models.GoalTypeSocial,
		Title: "Assistive device request",
	}, claimsFor(models.RoleSocialWorker))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceGoalLockStartsAtFirstApproval(t *testing.T) {
	repo := newPlanRepoStub()
	plan := seededPlan()
	now := time.Now().UTC()
	for i := range plan.Approvals {
		if plan.Approvals[i].Role == models.RoleDoctor {
			plan.Approvals[i].Status = models.ApprovalStatusApproved
			plan.Approvals[i].ApprovedAt = &now
		}
	}
	repo.plans["plan-1"] = plan
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true, LockGoalsAfterApproval: true})

	_, err := svc.AddGoal(context.Background(), "plan-1", dto.GoalRequest{
		Type:  models.GoalTypeSocial,
		Title: "Assistive device request",
	}, claimsFor(models.RoleSocialWorker))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlanServiceStatusIsCallerManaged(t *testing.T) {
	repo := newPlanRepoStub()
	repo.plans["plan-1"] = seededPlan()
	svc := newTestPlanService(repo, config.WorkflowConfig{AdminActsAsDirector: true})

	plan, err := svc.UpdateStatus(context.Background(), "plan-1", models.PlanStatusActive, claimsFor(models.RoleDirector))
	require.NoError(t, err)
	require.Equal(t, models.PlanStatusActive, plan.Status)

	_, err = svc.UpdateStatus(context.Background(), "plan-1", models.PlanStatus("bogus"), claimsFor(models.RoleDirector))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
