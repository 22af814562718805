package service

import (
	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/pkg/config"
)

// Authority answers role permission checks for the workflow engines. Checks
// are exact-match or set-membership: there is no role hierarchy, a director
// does not satisfy a doctor-only gate. The acting role always arrives as an
// explicit argument so the engines stay deterministic under test.
type Authority struct {
	adminActsAsDirector bool
}

// NewAuthority constructs the authority from workflow policy config.
func NewAuthority(cfg config.WorkflowConfig) *Authority {
	return &Authority{adminActsAsDirector: cfg.AdminActsAsDirector}
}

// HasPermission reports whether the current role is one of the required roles.
func (a *Authority) HasPermission(current models.UserRole, required ...models.UserRole) bool {
	for _, role := range required {
		if current == role {
			return true
		}
	}
	return false
}

// SatisfiesDirectorGate reports whether the role may act on director-gated
// steps. Admin qualifies only when the admin-as-director policy is enabled.
func (a *Authority) SatisfiesDirectorGate(current models.UserRole) bool {
	if current == models.RoleDirector {
		return true
	}
	return a.adminActsAsDirector && current == models.RoleAdmin
}

// GateRoles expands a gate role into the set of roles that satisfy it,
// applying the director-equivalence policy.
func (a *Authority) GateRoles(gate models.UserRole) []models.UserRole {
	if gate == models.RoleDirector && a.adminActsAsDirector {
		return []models.UserRole{models.RoleDirector, models.RoleAdmin}
	}
	return []models.UserRole{gate}
}
