package auth

import "github.com/shopora/checkout/internal/application/checkout"

// Role names handed over by the identity collaborator.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// RoleCapability is the default role policy: admins run fulfilment and
// cancellation, super admins additionally archive. The orchestrator only sees
// the capability answers, never the role names.
type RoleCapability struct{}

func NewRoleCapability() RoleCapability { return RoleCapability{} }

func (RoleCapability) CanCancel(actor checkout.Actor) bool {
	return actor.Role == RoleAdmin || actor.Role == RoleSuperAdmin
}

func (RoleCapability) CanAdvance(actor checkout.Actor) bool {
	return actor.Role == RoleAdmin || actor.Role == RoleSuperAdmin
}

func (RoleCapability) CanArchive(actor checkout.Actor) bool {
	return actor.Role == RoleSuperAdmin
}
