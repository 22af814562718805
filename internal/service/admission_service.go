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
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
)

type medicalStore interface {
	Create(ctx context.Context, profile *models.MedicalProfile) error
	LatestByBeneficiary(ctx context.Context, beneficiaryID string) (*models.MedicalProfile, error)
}

type riskInvalidator interface {
	Invalidate(ctx context.Context, beneficiaryID string)
}

// AdmissionService gates admission records behind the clinical validation
// rules: no profile is persisted while the draft fails a blocking rule.
type AdmissionService struct {
	profiles      medicalStore
	beneficiaries beneficiaryFinder
	authority     *Authority
	audit         auditLogger
	risk          riskInvalidator
	logger        *zap.Logger
}

// NewAdmissionService constructs the service.
func NewAdmissionService(profiles medicalStore, beneficiaries beneficiaryFinder, authority *Authority, audit auditLogger, risk riskInvalidator, logger *zap.Logger) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		profiles:      profiles,
		beneficiaries: beneficiaries,
		authority:     authority,
		audit:         audit,
		risk:          risk,
		logger:        logger,
	}
}

// Validate runs the admission rules without persisting anything, so the
// caller can preview blocking errors and warnings.
func (s *AdmissionService) Validate(ctx context.Context, draft dto.AdmissionDraft, actor *models.JWTClaims) (models.ValidationResult, error) {
	if actor == nil {
		return models.ValidationResult{}, appErrors.ErrUnauthorized
	}
	return EvaluateAdmission(draft), nil
}

// Admit validates the draft and, when it passes, persists the clinical
// snapshot. Warnings and derived actions ride along even on success.
func (s *AdmissionService) Admit(ctx context.Context, draft dto.AdmissionDraft, actor *models.JWTClaims) (*dto.AdmissionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.authority.HasPermission(actor.Role, models.RoleDoctor, models.RoleNurse) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only medical staff may record admissions")
	}
	if strings.TrimSpace(draft.BeneficiaryID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "beneficiaryId is required")
	}

	beneficiary, err := s.beneficiaries.FindByID(ctx, draft.BeneficiaryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "beneficiary not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load beneficiary")
	}

	result := EvaluateAdmission(draft)
	if !result.IsValid {
		return nil, appErrors.WithFields(appErrors.ErrValidation, result.Errors)
	}

	history := draft.History
	if draft.SeizureHistory != nil {
		history.SeizureHistory = draft.SeizureHistory
	}

	now := time.Now().UTC()
	profile := &models.MedicalProfile{
		BeneficiaryID:    beneficiary.ID,
		AdmissionDate:    now,
		PrimaryDiagnosis: draft.PrimaryDiagnosis,
		IsEpileptic:      draft.IsEpileptic,
		History:          history,
		Infection: models.InfectionStatus{
			SuspectedInfection:   result.Actions.RecommendIsolation,
			IsolationRecommended: result.Actions.RecommendIsolation,
		},
		CheckupComment: strings.TrimSpace(draft.CheckupComment),
		CreatedBy:      actor.UserID,
		CreatedAt:      now,
	}
	if draft.Vitals != nil {
		profile.LatestVitals = *draft.Vitals
	}
	if result.Actions.RecommendIsolation {
		profile.Infection.IsolationReason = isolationWarning
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist admission profile")
	}
	s.emitAudit(ctx, actor.UserID, profile.ID)
	if s.risk != nil {
		s.risk.Invalidate(ctx, beneficiary.ID)
	}

	return &dto.AdmissionResponse{
		Profile:    profile,
		Validation: result,
	}, nil
}

func (s *AdmissionService) emitAudit(ctx context.Context, userID, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionAdmissionCreate,
		Resource:   "medical_profile",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "admission-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
