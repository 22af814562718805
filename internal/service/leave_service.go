package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/internal/repository"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
)

const leaveDateLayout = "2006-01-02"

type leaveStore interface {
	Create(ctx context.Context, request *models.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
	ApplyTransition(ctx context.Context, params repository.LeaveTransitionParams) error
}

type beneficiaryFinder interface {
	FindByID(ctx context.Context, id string) (*models.Beneficiary, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ClinicalRiskProvider surfaces the advisory medical snapshot shown to a
// doctor reviewing a pending request. Read-only collaborator: failures never
// block the workflow.
type ClinicalRiskProvider interface {
	RiskFlags(ctx context.Context, beneficiaryID string) (*models.ClinicalRiskFlags, error)
}

// leaveTransition is one legal edge in the approval chain.
type leaveTransition struct {
	next models.LeaveStatus
	gate models.UserRole
}

type transitionKey struct {
	status models.LeaveStatus
	action models.LeaveActionKind
}

// leaveTransitions is the single source of truth for transition legality.
// Every (status, action) pair not listed here is refused. The cancel kind is
// recorded in history payloads only; no edge drives it.
var leaveTransitions = map[transitionKey]leaveTransition{
	{models.LeaveStatusPendingMedical, models.LeaveActionApprove}:  {models.LeaveStatusPendingDirector, models.RoleDoctor},
	{models.LeaveStatusPendingMedical, models.LeaveActionReject}:   {models.LeaveStatusRejected, models.RoleDoctor},
	{models.LeaveStatusPendingDirector, models.LeaveActionApprove}: {models.LeaveStatusApproved, models.RoleDirector},
	{models.LeaveStatusPendingDirector, models.LeaveActionReject}:  {models.LeaveStatusRejected, models.RoleDirector},
}

// LeaveService drives the linear leave approval chain: social worker files,
// doctor clears, director decides.
type LeaveService struct {
	repo          leaveStore
	beneficiaries beneficiaryFinder
	risk          ClinicalRiskProvider
	authority     *Authority
	audit         auditLogger
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewLeaveService constructs the service.
func NewLeaveService(repo leaveStore, beneficiaries beneficiaryFinder, risk ClinicalRiskProvider, authority *Authority, audit auditLogger, metrics *MetricsService, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{
		repo:          repo,
		beneficiaries: beneficiaries,
		risk:          risk,
		authority:     authority,
		audit:         audit,
		metrics:       metrics,
		logger:        logger,
	}
}

// Create files a new leave request on behalf of a beneficiary. Only social
// workers may open requests; the chain starts in medical review.
func (s *LeaveService) Create(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.authority.HasPermission(actor.Role, models.RoleSocialWorker) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only social workers may file leave requests")
	}
	if err := validateCreateLeave(req); err != nil {
		return nil, err
	}
	start, err := time.Parse(leaveDateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
	}
	end, err := time.Parse(leaveDateLayout, req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}

	beneficiary, err := s.beneficiaries.FindByID(ctx, req.BeneficiaryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "beneficiary not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load beneficiary")
	}

	now := time.Now().UTC()
	request := &models.LeaveRequest{
		BeneficiaryID:   beneficiary.ID,
		BeneficiaryName: beneficiary.FullName,
		Type:            req.Type,
		RequestDate:     now,
		StartDate:       start,
		EndDate:         end,
		DurationDays:    int(end.Sub(start).Hours()/24) + 1,
		GuardianName:    req.GuardianName,
		GuardianPhone:   req.GuardianPhone,
		Reason:          req.Reason,
		Status:          models.LeaveStatusPendingMedical,
		History: models.LeaveHistory{{
			ActorID:   actor.UserID,
			ActorName: actor.FullName,
			Role:      actor.Role,
			Action:    models.LeaveActionRequest,
			Timestamp: now,
		}},
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionLeaveCreate, request.ID)
	return request, nil
}

// Approve moves the request one step forward in the chain. The doctor's
// approval writes the medical clearance snapshot; the director's approval
// finalizes the request.
func (s *LeaveService) Approve(ctx context.Context, id string, req dto.LeaveDecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	return s.decide(ctx, id, models.LeaveActionApprove, req.Note, actor)
}

// Reject terminates the request from either pending step. Rejection is
// terminal: there is no resubmit edge.
func (s *LeaveService) Reject(ctx context.Context, id string, req dto.LeaveDecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	return s.decide(ctx, id, models.LeaveActionReject, req.Note, actor)
}

func (s *LeaveService) decide(ctx context.Context, id string, action models.LeaveActionKind, note string, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	transition, ok := leaveTransitions[transitionKey{request.Status, action}]
	if !ok {
		return nil, appErrors.Transition(string(request.Status), string(action))
	}
	if !s.satisfiesGate(transition.gate, actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not act on this step")
	}

	now := time.Now().UTC()
	entry := models.LeaveAction{
		ActorID:   actor.UserID,
		ActorName: actor.FullName,
		Role:      actor.Role,
		Action:    action,
		Timestamp: now,
		Note:      strings.TrimSpace(note),
	}
	params := repository.LeaveTransitionParams{
		ID:         request.ID,
		FromStatus: request.Status,
		ToStatus:   transition.next,
		History:    append(append(models.LeaveHistory{}, request.History...), entry),
		UpdatedAt:  now,
	}
	// The clearance snapshot is written exactly once, when the doctor
	// approves out of medical review. A rejection records no clearance.
	if request.Status == models.LeaveStatusPendingMedical && action == models.LeaveActionApprove {
		params.Clearance = &models.MedicalClearance{
			ClearedBy:   actor.UserID,
			ClearedAt:   now,
			IsFit:       true,
			Precautions: strings.TrimSpace(note),
		}
	}

	if err := s.repo.ApplyTransition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request was already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply leave transition")
	}

	request.Status = transition.next
	request.History = params.History
	request.UpdatedAt = now
	if params.Clearance != nil {
		request.Clearance = params.Clearance
	}

	auditAction := models.AuditActionLeaveApprove
	if action == models.LeaveActionReject {
		auditAction = models.AuditActionLeaveReject
	}
	s.emitAudit(ctx, actor.UserID, auditAction, request.ID)
	s.metrics.RecordLeaveTransition(string(action), string(transition.next))
	return request, nil
}

// Get returns a single request with advisory risk flags attached while the
// request sits in medical review.
func (s *LeaveService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.LeaveDetailResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visibleTo(request.Status, actor.Role) {
		return nil, appErrors.ErrForbidden
	}

	response := &dto.LeaveDetailResponse{Request: request}
	if request.Status == models.LeaveStatusPendingMedical && s.risk != nil &&
		s.authority.HasPermission(actor.Role, models.RoleDoctor, models.RoleNurse) {
		flags, err := s.risk.RiskFlags(ctx, request.BeneficiaryID)
		if err != nil {
			s.logger.Warn("failed to resolve clinical risk flags",
				zap.String("beneficiary_id", request.BeneficiaryID), zap.Error(err))
		} else {
			response.RiskFlags = flags
		}
	}
	return response, nil
}

// List returns requests visible to the actor's role. Clinical roles only see
// the requests they act on or execute.
func (s *LeaveService) List(ctx context.Context, query dto.LeaveQuery, actor *models.JWTClaims) ([]models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.LeaveFilter{
		BeneficiaryID: query.BeneficiaryID,
		Status:        query.Status,
	}
	switch actor.Role {
	case models.RoleSocialWorker, models.RoleDirector, models.RoleAdmin:
		// full visibility
	case models.RoleDoctor, models.RoleNurse:
		scoped := intersectStatuses(filter.Status, clinicalVisibleStatuses)
		if len(scoped) == 0 {
			// The requested statuses are all outside the clinical window.
			return []models.LeaveRequest{}, nil
		}
		filter.Status = scoped
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return requests, nil
}

var clinicalVisibleStatuses = []models.LeaveStatus{
	models.LeaveStatusPendingMedical,
	models.LeaveStatusApproved,
	models.LeaveStatusActive,
	models.LeaveStatusOverdue,
}

func (s *LeaveService) loadRequest(ctx context.Context, id string) (*models.LeaveRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	return request, nil
}

func (s *LeaveService) satisfiesGate(gate, role models.UserRole) bool {
	if gate == models.RoleDirector {
		return s.authority.SatisfiesDirectorGate(role)
	}
	return s.authority.HasPermission(role, gate)
}

func (s *LeaveService) visibleTo(status models.LeaveStatus, role models.UserRole) bool {
	switch role {
	case models.RoleSocialWorker, models.RoleDirector, models.RoleAdmin:
		return true
	case models.RoleDoctor, models.RoleNurse:
		for _, allowed := range clinicalVisibleStatuses {
			if status == allowed {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (s *LeaveService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "leave_request",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "leave-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func validateCreateLeave(req dto.CreateLeaveRequest) error {
	if strings.TrimSpace(req.BeneficiaryID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "beneficiaryId is required")
	}
	switch req.Type {
	case models.LeaveTypeHomeVisit, models.LeaveTypeHospital, models.LeaveTypeOuting, models.LeaveTypeOther:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported leave type")
	}
	if strings.TrimSpace(req.GuardianName) == "" || strings.TrimSpace(req.GuardianPhone) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "guardian name and phone are required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	return nil
}

func intersectStatuses(requested, allowed []models.LeaveStatus) []models.LeaveStatus {
	if len(requested) == 0 {
		return append([]models.LeaveStatus{}, allowed...)
	}
	out := make([]models.LeaveStatus, 0, len(requested))
	for _, status := range requested {
		for _, candidate := range allowed {
			if status == candidate {
				out = append(out, status)
				break
			}
		}
	}
	return out
}
