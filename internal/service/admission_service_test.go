package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/pkg/config"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
)

type medicalRepoStub struct {
	profiles []*models.MedicalProfile
}

func (s *medicalRepoStub) Create(ctx context.Context, profile *models.MedicalProfile) error {
	if profile.ID == "" {
		profile.ID = "profile-1"
	}
	clone := *profile
	s.profiles = append(s.profiles, &clone)
	return nil
}

func (s *medicalRepoStub) LatestByBeneficiary(ctx context.Context, beneficiaryID string) (*models.MedicalProfile, error) {
	for i := len(s.profiles) - 1; i >= 0; i-- {
		if s.profiles[i].BeneficiaryID == beneficiaryID {
			clone := *s.profiles[i]
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newTestAdmissionService(repo *medicalRepoStub) *AdmissionService {
	finder := &beneficiaryFinderStub{beneficiaries: map[string]*models.Beneficiary{
		"ben-1": {ID: "ben-1", FullName: "Ahmed", Active: true},
	}}
	authority := NewAuthority(config.WorkflowConfig{AdminActsAsDirector: true})
	return NewAdmissionService(repo, finder, authority, &auditStub{}, nil, nil)
}

func TestAdmissionServiceBlocksInvalidDraft(t *testing.T) {
	repo := &medicalRepoStub{}
	svc := newTestAdmissionService(repo)

	_, err := svc.Admit(context.Background(), dto.AdmissionDraft{
		BeneficiaryID: "ben-1",
		IsEpileptic:   true,
	}, claimsFor(models.RoleDoctor))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Contains(t, appErr.Fields, "seizureHistory")
	require.Empty(t, repo.profiles, "nothing may be persisted for an invalid draft")
}

func TestAdmissionServicePersistsValidDraft(t *testing.T) {
	repo := &medicalRepoStub{}
	svc := newTestAdmissionService(repo)

	response, err := svc.Admit(context.Background(), dto.AdmissionDraft{
		BeneficiaryID:    "ben-1",
		PrimaryDiagnosis: models.DiagnosisCerebralPalsy,
		IsEpileptic:      true,
		Vitals:           &models.VitalSigns{Temperature: 36.9, Pulse: 80},
		SeizureHistory:   &models.SeizureHistory{HasSeizures: true, LastSeizureDate: "2026-07-01"},
	}, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.Len(t, repo.profiles, 1)
	require.True(t, response.Validation.IsValid)
	require.NotNil(t, response.Profile.History.SeizureHistory)
	require.Equal(t, "2026-07-01", response.Profile.History.SeizureHistory.LastSeizureDate)
	require.False(t, response.Profile.Infection.IsolationRecommended)
}

func TestAdmissionServiceFeverYieldsIsolationStatus(t *testing.T) {
	repo := &medicalRepoStub{}
	svc := newTestAdmissionService(repo)

	response, err := svc.Admit(context.Background(), dto.AdmissionDraft{
		BeneficiaryID:  "ben-1",
		Vitals:         &models.VitalSigns{Temperature: 38.7},
		CheckupComment: "febrile on arrival, bloodwork ordered",
	}, claimsFor(models.RoleNurse))
	require.NoError(t, err)
	require.True(t, response.Profile.Infection.SuspectedInfection)
	require.True(t, response.Profile.Infection.IsolationRecommended)
	require.Equal(t, isolationWarning, response.Profile.Infection.IsolationReason)
	require.Contains(t, response.Validation.Warnings, isolationWarning)
}

func TestAdmissionServiceRejectsNonMedicalRoles(t *testing.T) {
	svc := newTestAdmissionService(&medicalRepoStub{})

	_, err := svc.Admit(context.Background(), dto.AdmissionDraft{BeneficiaryID: "ben-1"}, claimsFor(models.RoleSocialWorker))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceValidatePreviewDoesNotPersist(t *testing.T) {
	repo := &medicalRepoStub{}
	svc := newTestAdmissionService(repo)

	result, err := svc.Validate(context.Background(), dto.AdmissionDraft{
		BeneficiaryID: "ben-1",
		IsEpileptic:   true,
	}, claimsFor(models.RoleDoctor))
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.Empty(t, repo.profiles)
}
