// Package policy holds the single authorization decision table for the API.
//
// Every service operation calls Authorize exactly once with the operation,
// the caller and, for operations on an owned resource, the owner's user id.
// Role checks live here and nowhere else in the core.
package policy

import (
	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

// Operation names a protected use case.
type Operation string

const (
	OpReadProfile      Operation = "profile.read"
	OpWriteProfile     Operation = "profile.write"
	OpCreateRequest    Operation = "request.create"
	OpListOwnRequests  Operation = "request.list_own"
	OpReadOwnRequest   Operation = "request.read_own"
	OpCancelOwnRequest Operation = "request.cancel_own"
	OpListAllRequests  Operation = "request.list_all"
	OpUpdateAnyStatus  Operation = "request.update_any"
	OpReadHistory      Operation = "request.history"
	OpReadStats        Operation = "request.stats"
)

type rule struct {
	roles []domain.Role
	// ownerScoped operations additionally require caller == owner for
	// non-staff roles.
	ownerScoped bool
	// hideForeign makes a foreign resource look absent (NotFound) instead
	// of Forbidden, so ownership-scoped lookups do not leak existence.
	hideForeign bool
}

var (
	anyone   = []domain.Role{domain.RoleClient, domain.RoleAdvisor, domain.RoleAdmin}
	clients  = []domain.Role{domain.RoleClient}
	staffers = []domain.Role{domain.RoleAdvisor, domain.RoleAdmin}
)

var rules = map[Operation]rule{
	OpReadProfile:      {roles: anyone},
	OpWriteProfile:     {roles: anyone},
	OpCreateRequest:    {roles: clients},
	OpListOwnRequests:  {roles: clients},
	OpReadOwnRequest:   {roles: clients, ownerScoped: true, hideForeign: true},
	OpCancelOwnRequest: {roles: clients, ownerScoped: true, hideForeign: true},
	OpListAllRequests:  {roles: staffers},
	OpUpdateAnyStatus:  {roles: staffers},
	OpReadHistory:      {roles: anyone, ownerScoped: true},
	OpReadStats:        {roles: staffers},
}

// Authorize returns nil when caller may perform op on a resource owned by
// ownerID. It returns a Forbidden or NotFound domain error otherwise.
func Authorize(op Operation, caller domain.Caller, ownerID string) error {
	r, ok := rules[op]
	if !ok || caller.UserID == "" {
		return domain.Forbiddenf("operation not permitted")
	}
	if !hasRole(r.roles, caller.Role) {
		return domain.Forbiddenf("role %s may not perform %s", caller.Role, op)
	}
	if !r.ownerScoped || caller.Role.IsStaff() || caller.Owns(ownerID) {
		return nil
	}
	if r.hideForeign {
		return domain.ErrRequestNotFound
	}
	return domain.Forbiddenf("not the owner of this request")
}

// ForStatusUpdate picks the operation a status write maps to for caller.
func ForStatusUpdate(caller domain.Caller) Operation {
	if caller.Role.IsStaff() {
		return OpUpdateAnyStatus
	}
	return OpCancelOwnRequest
}

func hasRole(allowed []domain.Role, role domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
