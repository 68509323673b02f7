// Package access holds role and permission names and the authenticated actor
// that handlers pass to domain services.
package access

import (
	"slices"
	"time"
)

// Actor is the caller of a domain operation. Token fields are set for
// requests authenticated with an access token.
type Actor struct {
	UserID      string
	EmployeeID  string
	Roles       []string
	RequestID   string
	IP          string
	SessionID   string
	TokenID     string
	TokenExpiry time.Time
}

func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

func (a Actor) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

// IsHR reports HR or any role above it.
func (a Actor) IsHR() bool {
	return a.HasAnyRole(RoleHR, RoleAdmin, RoleSuperAdmin)
}

func (a Actor) IsAdmin() bool {
	return a.HasAnyRole(RoleAdmin, RoleSuperAdmin)
}

func (a Actor) IsSuperAdmin() bool {
	return a.HasRole(RoleSuperAdmin)
}

func (a Actor) IsManager() bool {
	return a.HasRole(RoleManager)
}

// IsEmployee reports whether the actor is linked to the given employee record.
func (a Actor) IsEmployee(employeeID string) bool {
	return a.EmployeeID != "" && a.EmployeeID == employeeID
}

// System is used for scheduled jobs.
var System = Actor{UserID: "", Roles: []string{RoleSuperAdmin}}
