package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amal-center/rehab-center-api/internal/models"
)

func TestClinicalRiskServiceNoAdmissionYieldsCleanFlags(t *testing.T) {
	svc := NewClinicalRiskService(&medicalRepoStub{}, nil, nil)

	flags, err := svc.RiskFlags(context.Background(), "ben-unknown")
	require.NoError(t, err)
	require.False(t, flags.Infection)
	require.False(t, flags.UnstableVitals)
}

func TestClinicalRiskServiceDerivesFromLatestProfile(t *testing.T) {
	repo := &medicalRepoStub{profiles: []*models.MedicalProfile{
		{
			BeneficiaryID: "ben-1",
			LatestVitals:  models.VitalSigns{Temperature: 38.9, Pulse: 110},
			Infection: models.InfectionStatus{
				SuspectedInfection:   true,
				IsolationRecommended: true,
				IsolationReason:      isolationWarning,
			},
		},
	}}
	svc := NewClinicalRiskService(repo, nil, nil)

	flags, err := svc.RiskFlags(context.Background(), "ben-1")
	require.NoError(t, err)
	require.True(t, flags.Infection)
	require.True(t, flags.UnstableVitals)
	require.Equal(t, isolationWarning, flags.Notes)
}

func TestClinicalRiskServiceStableProfile(t *testing.T) {
	repo := &medicalRepoStub{profiles: []*models.MedicalProfile{
		{
			BeneficiaryID: "ben-1",
			LatestVitals:  models.VitalSigns{Temperature: 36.8, Pulse: 75, SystolicBP: 118},
		},
	}}
	svc := NewClinicalRiskService(repo, nil, nil)

	flags, err := svc.RiskFlags(context.Background(), "ben-1")
	require.NoError(t, err)
	require.False(t, flags.Infection)
	require.False(t, flags.UnstableVitals)
}
