package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/pkg/config"
)

func TestAuthorityHasPermissionExactMatch(t *testing.T) {
	authority := NewAuthority(config.WorkflowConfig{AdminActsAsDirector: true})

	require.True(t, authority.HasPermission(models.RoleDoctor, models.RoleDoctor))
	require.True(t, authority.HasPermission(models.RoleNurse, models.RoleDoctor, models.RoleNurse))

	// No hierarchy: a director does not satisfy a doctor-only check.
	require.False(t, authority.HasPermission(models.RoleDirector, models.RoleDoctor))
	require.False(t, authority.HasPermission(models.RoleAdmin, models.RoleDoctor))
	require.False(t, authority.HasPermission(models.RoleDoctor))
}

func TestAuthorityDirectorGatePolicy(t *testing.T) {
	enabled := NewAuthority(config.WorkflowConfig{AdminActsAsDirector: true})
	require.True(t, enabled.SatisfiesDirectorGate(models.RoleDirector))
	require.True(t, enabled.SatisfiesDirectorGate(models.RoleAdmin))
	require.False(t, enabled.SatisfiesDirectorGate(models.RoleDoctor))

	disabled := NewAuthority(config.WorkflowConfig{AdminActsAsDirector: false})
	require.True(t, disabled.SatisfiesDirectorGate(models.RoleDirector))
	require.False(t, disabled.SatisfiesDirectorGate(models.RoleAdmin))
}

func TestAuthorityGateRoles(t *testing.T) {
	enabled := NewAuthority(config.WorkflowConfig{AdminActsAsDirector: true})
	require.ElementsMatch(t,
		[]models.UserRole{models.RoleDirector, models.RoleAdmin},
		enabled.GateRoles(models.RoleDirector))
	require.Equal(t, []models.UserRole{models.RoleDoctor}, enabled.GateRoles(models.RoleDoctor))

	disabled := NewAuthority(config.WorkflowConfig{AdminActsAsDirector: false})
	require.Equal(t, []models.UserRole{models.RoleDirector}, disabled.GateRoles(models.RoleDirector))
}
