package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/pkg/config"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
)

type planStore interface {
	Create(ctx context.Context, plan *models.RehabPlan) error
	GetByID(ctx context.Context, id string) (*models.RehabPlan, error)
	List(ctx context.Context, filter models.PlanFilter) ([]models.RehabPlan, error)
	UpdateGoals(ctx context.Context, id string, goals models.SmartGoals, updatedAt time.Time) error
	UpdateApprovals(ctx context.Context, id string, approvals models.PlanApprovals, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.PlanStatus, updatedAt time.Time) error
}

// PlanService governs rehabilitation plans: goal authoring plus the
// three-way sign-off where doctor and social worker approve independently
// and the director closes only after both peers are in.
type PlanService struct {
	repo          planStore
	beneficiaries beneficiaryFinder
	authority     *Authority
	audit         auditLogger
	logger        *zap.Logger
	lockGoals     bool
}

// NewPlanService constructs the service.
func NewPlanService(repo planStore, beneficiaries beneficiaryFinder, authority *Authority, audit auditLogger, cfg config.WorkflowConfig, logger *zap.Logger) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanService{
		repo:          repo,
		beneficiaries: beneficiaries,
		authority:     authority,
		audit:         audit,
		logger:        logger,
		lockGoals:     cfg.LockGoalsAfterApproval,
	}
}

// Create opens a draft plan, snapshotting the beneficiary's medical and
// social context at authoring time. Later beneficiary edits do not alter a
// stored plan.
func (s *PlanService) Create(ctx context.Context, req dto.CreatePlanRequest, actor *models.JWTClaims) (*dto.PlanResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.authority.HasPermission(actor.Role, models.RoleSocialWorker, models.RoleDoctor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clinical staff may author plans")
	}
	if strings.TrimSpace(req.BeneficiaryID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "beneficiaryId is required")
	}

	beneficiary, err := s.beneficiaries.FindByID(ctx, req.BeneficiaryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "beneficiary not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load beneficiary")
	}

	plan := &models.RehabPlan{
		BeneficiaryID:   beneficiary.ID,
		BeneficiaryName: beneficiary.FullName,
		MedicalContext: models.MedicalContext{
			Diagnosis: beneficiary.MedicalDiagnosis,
			Needs:     req.Needs,
		},
		SocialContext: models.SocialContext{
			EconomicStatus: beneficiary.SocialStatus,
			RiskLevel:      deriveRiskLevel(*beneficiary),
		},
		Goals:     models.SmartGoals{},
		Approvals: models.NewPlanApprovals(),
		Status:    models.PlanStatusDraft,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create plan")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionPlanCreate, plan.ID)

	return &dto.PlanResponse{
		Plan:        plan,
		Suggestions: SuggestGoals(*beneficiary),
	}, nil
}

// Get returns a plan with its derived approval state and fresh suggestions.
func (s *PlanService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.PlanResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	response := &dto.PlanResponse{
		Plan:              plan,
		ApprovalsComplete: plan.Approvals.Complete(),
	}
	if beneficiary, err := s.beneficiaries.FindByID(ctx, plan.BeneficiaryID); err == nil {
		response.Suggestions = SuggestGoals(*beneficiary)
	}
	return response, nil
}

// List returns plans matching the query.
func (s *PlanService) List(ctx context.Context, query dto.PlanQuery, actor *models.JWTClaims) ([]models.RehabPlan, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	plans, err := s.repo.List(ctx, models.PlanFilter{
		BeneficiaryID: query.BeneficiaryID,
		Status:        query.Status,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plans")
	}
	return plans, nil
}

// AddGoal appends a goal to the plan.
func (s *PlanService) AddGoal(ctx context.Context, planID string, req dto.GoalRequest, actor *models.JWTClaims) (*models.RehabPlan, error) {
	return s.mutateGoals(ctx, planID, actor, func(goals models.SmartGoals) (models.SmartGoals, error) {
		goal, err := buildGoal(req)
		if err != nil {
			return nil, err
		}
		return append(goals, goal), nil
	})
}

// UpdateGoal replaces the fields of an existing goal.
func (s *PlanService) UpdateGoal(ctx context.Context, planID, goalID string, req dto.GoalRequest, actor *models.JWTClaims) (*models.RehabPlan, error) {
	return s.mutateGoals(ctx, planID, actor, func(goals models.SmartGoals) (models.SmartGoals, error) {
		for i := range goals {
			if goals[i].ID != goalID {
				continue
			}
			updated, err := buildGoal(req)
			if err != nil {
				return nil, err
			}
			updated.ID = goalID
			if req.Progress == nil {
				updated.Progress = goals[i].Progress
			}
			if req.Status == "" {
				updated.Status = goals[i].Status
			}
			goals[i] = updated
			return goals, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
	})
}

// RemoveGoal deletes a goal from the plan.
func (s *PlanService) RemoveGoal(ctx context.Context, planID, goalID string, actor *models.JWTClaims) (*models.RehabPlan, error) {
	return s.mutateGoals(ctx, planID, actor, func(goals models.SmartGoals) (models.SmartGoals, error) {
		for i := range goals {
			if goals[i].ID == goalID {
				return append(goals[:i], goals[i+1:]...), nil
			}
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
	})
}

func (s *PlanService) mutateGoals(ctx context.Context, planID string, actor *models.JWTClaims, mutate func(models.SmartGoals) (models.SmartGoals, error)) (*models.RehabPlan, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.authority.HasPermission(actor.Role, models.RoleSocialWorker, models.RoleDoctor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clinical staff may edit goals")
	}
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if s.lockGoals && plan.Approvals.AnyApproved() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "goals are locked once sign-off has started")
	}

	goals, err := mutate(append(models.SmartGoals{}, plan.Goals...))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateGoals(ctx, planID, goals, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update goals")
	}
	plan.Goals = goals
	plan.UpdatedAt = now
	s.emitAudit(ctx, actor.UserID, models.AuditActionPlanGoalChange, planID)
	return plan, nil
}

// Approve records the actor's sign-off. Doctor and social worker approve
// independently in any order; the director slot refuses until both peers
// are approved. Approvals are terminal.
func (s *PlanService) Approve(ctx context.Context, planID string, actor *models.JWTClaims) (*dto.PlanResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	slot, err := s.approvalSlot(actor.Role)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	current, ok := plan.Approvals.Get(slot)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInternal, "approval slot missing")
	}
	if current.Status == models.ApprovalStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "plan already approved by this role")
	}
	if slot == models.RoleDirector && !plan.Approvals.PeersApproved() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "doctor and social worker approvals are required first")
	}

	now := time.Now().UTC()
	approvals := append(models.PlanApprovals{}, plan.Approvals...)
	for i := range approvals {
		if approvals[i].Role == slot {
			approvals[i].Status = models.ApprovalStatusApproved
			approvals[i].ApprovedBy = actor.UserID
			approvals[i].ApprovedAt = &now
		}
	}
	if err := s.repo.UpdateApprovals(ctx, planID, approvals, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record approval")
	}
	plan.Approvals = approvals
	plan.UpdatedAt = now
	s.emitAudit(ctx, actor.UserID, models.AuditActionPlanApprove, planID)

	return &dto.PlanResponse{
		Plan:              plan,
		ApprovalsComplete: approvals.Complete(),
	}, nil
}

// UpdateStatus moves the caller-managed plan lifecycle. Full approval never
// flips the status automatically.
func (s *PlanService) UpdateStatus(ctx context.Context, planID string, status models.PlanStatus, actor *models.JWTClaims) (*models.RehabPlan, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.authority.HasPermission(actor.Role, models.RoleSocialWorker, models.RoleDoctor) &&
		!s.authority.SatisfiesDirectorGate(actor.Role) {
		return nil, appErrors.ErrForbidden
	}
	switch status {
	case models.PlanStatusDraft, models.PlanStatusActive, models.PlanStatusCompleted, models.PlanStatusArchived:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported plan status")
	}
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, planID, status, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update plan status")
	}
	plan.Status = status
	plan.UpdatedAt = now
	return plan, nil
}

// approvalSlot maps an acting role onto its sign-off slot. Admin maps to the
// director slot only under the admin-as-director policy.
func (s *PlanService) approvalSlot(role models.UserRole) (models.UserRole, error) {
	switch role {
	case models.RoleDoctor, models.RoleSocialWorker:
		return role, nil
	default:
		if s.authority.SatisfiesDirectorGate(role) {
			return models.RoleDirector, nil
		}
		return "", appErrors.Clone(appErrors.ErrForbidden, "role holds no approval slot")
	}
}

func (s *PlanService) loadPlan(ctx context.Context, id string) (*models.RehabPlan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	return plan, nil
}

func (s *PlanService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "rehab_plan",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "plan-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func buildGoal(req dto.GoalRequest) (models.SmartGoal, error) {
	switch req.Type {
	case models.GoalTypeMedical, models.GoalTypeSocial, models.GoalTypePsychological,
		models.GoalTypePhysiotherapy, models.GoalTypeOccupational:
	default:
		return models.SmartGoal{}, appErrors.Clone(appErrors.ErrValidation, "unsupported goal type")
	}
	if strings.TrimSpace(req.Title) == "" {
		return models.SmartGoal{}, appErrors.Clone(appErrors.ErrValidation, "goal title is required")
	}
	goal := models.SmartGoal{
		ID:               uuid.NewString(),
		Type:             req.Type,
		Title:            strings.TrimSpace(req.Title),
		MeasureOfSuccess: req.MeasureOfSuccess,
		TargetDate:       req.TargetDate,
		Status:           models.GoalStatusPending,
		AssignedTo:       req.AssignedTo,
	}
	if req.Status != "" {
		switch req.Status {
		case models.GoalStatusPending, models.GoalStatusInProgress, models.GoalStatusAchieved, models.GoalStatusDelayed:
			goal.Status = req.Status
		default:
			return models.SmartGoal{}, appErrors.Clone(appErrors.ErrValidation, "unsupported goal status")
		}
	}
	if req.Progress != nil {
		progress := *req.Progress
		if progress < 0 || progress > 100 {
			return models.SmartGoal{}, appErrors.Clone(appErrors.ErrValidation, "progress must be between 0 and 100")
		}
		goal.Progress = progress
	}
	return goal, nil
}

// deriveRiskLevel grades social risk from the beneficiary record at
// plan-authoring time.
func deriveRiskLevel(b models.Beneficiary) models.RiskLevel {
	if containsAny(b.SocialStatus, "low income", "دخل محدود") || containsAny(b.Notes, "low income", "دخل محدود") {
		return models.RiskMedium
	}
	return models.RiskLow
}
