package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRolePermissionsAreCumulative(t *testing.T) {
	for i := 1; i < len(BuiltInRoles); i++ {
		lower := RolePermissions[BuiltInRoles[i-1]]
		higher := RolePermissions[BuiltInRoles[i]]
		for _, perm := range lower {
			assert.Contains(t, higher, perm, "%s should inherit %s from %s", BuiltInRoles[i], perm, BuiltInRoles[i-1])
		}
	}
	assert.ElementsMatch(t, DefaultPermissions, RolePermissions[RoleSuperAdmin])
	assert.NotContains(t, RolePermissions[RoleUser], PermEmployeesWrite)
	assert.NotContains(t, RolePermissions[RoleHR], PermUsersWrite)
}

func TestActorRoles(t *testing.T) {
	hr := Actor{Roles: []string{RoleHR}}
	assert.True(t, hr.IsHR())
	assert.False(t, hr.IsAdmin())

	admin := Actor{Roles: []string{RoleUser, RoleAdmin}}
	assert.True(t, admin.IsHR())
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsSuperAdmin())

	user := Actor{EmployeeID: "e1", Roles: []string{RoleUser}}
	assert.False(t, user.IsHR())
	assert.True(t, user.IsEmployee("e1"))
	assert.False(t, Actor{}.IsEmployee(""))
}
