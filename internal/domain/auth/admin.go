package auth

import (
	"context"
	"slices"
	"strings"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
)

func (s *Service) SearchUsers(ctx context.Context, criteria UserCriteria, limit, offset int) ([]User, int64, error) {
	return s.store.SearchUsers(ctx, criteria, limit, offset)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) CreateUser(ctx context.Context, actor access.Actor, in CreateUserInput) (*User, error) {
	if err := ValidatePassword("password", in.Password); err != nil {
		return nil, err
	}
	if len(in.Roles) == 0 {
		in.Roles = []string{access.RoleUser}
	}
	if err := s.checkGrant(actor, nil, in.Roles); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "auth.user.create", "user", user.ID, nil, user)
	return user, nil
}

func (s *Service) createUser(ctx context.Context, in CreateUserInput) (*User, error) {
	roles, err := s.resolveRoles(ctx, in.Roles)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Enabled:      in.Enabled,
		EmployeeID:   in.EmployeeID,
		Roles:        roles,
	}
	if err := s.ensureUnique(ctx, "", user.Username, user.Email); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ensureUnique(ctx context.Context, selfID, username, emailAddr string) error {
	for field, value := range map[string]string{"username": username, "email": emailAddr} {
		if value == "" {
			continue
		}
		existing, err := s.store.FindUserByLogin(ctx, value)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			return err
		}
		if existing.ID != selfID {
			return apperr.Conflict(field+"_taken", field+" is already in use")
		}
	}
	return nil
}

func (s *Service) UpdateUser(ctx context.Context, actor access.Actor, id string, in UpdateUserInput) (*User, error) {
	before, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	username, emailAddr := "", ""
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		fields["username"] = username
	}
	if in.Email != nil {
		emailAddr = strings.ToLower(strings.TrimSpace(*in.Email))
		fields["email"] = emailAddr
	}
	if in.EmployeeID != nil {
		if *in.EmployeeID == "" {
			fields["employee_id"] = nil
		} else {
			fields["employee_id"] = *in.EmployeeID
		}
	}
	if len(fields) == 0 {
		return before, nil
	}
	if err := s.ensureUnique(ctx, id, username, emailAddr); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUserFields(ctx, id, fields); err != nil {
		return nil, err
	}
	after, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "auth.user.update", "user", id, before, after)
	return after, nil
}

// SetEnabled is the soft delete for accounts. Disabling revokes all sessions.
func (s *Service) SetEnabled(ctx context.Context, actor access.Actor, id string, enabled bool) (*User, error) {
	if !enabled && actor.UserID == id {
		return nil, apperr.InvalidState("self_disable", "users cannot disable their own account")
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if slices.Contains(user.RoleNames(), access.RoleSuperAdmin) && !actor.IsSuperAdmin() {
		return nil, apperr.Forbidden("only a super admin can change a super admin account")
	}
	err = s.store.Transaction(ctx, func(st *Store) error {
		if err := st.UpdateUserFields(ctx, id, map[string]any{"enabled": enabled}); err != nil {
			return err
		}
		if !enabled {
			return st.RevokeUserSessions(ctx, id, s.now())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	action := "auth.user.enable"
	if !enabled {
		action = "auth.user.disable"
	}
	user.Enabled = enabled
	s.audit.Record(ctx, actor, action, "user", id, nil, map[string]bool{"enabled": enabled})
	return user, nil
}

func (s *Service) AssignRoles(ctx context.Context, actor access.Actor, id string, roleNames []string) (*User, error) {
	if len(roleNames) == 0 {
		return nil, apperr.Validation("roles", "at least one role is required")
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkGrant(actor, user.RoleNames(), roleNames); err != nil {
		return nil, err
	}
	if actor.UserID == id && slices.Contains(user.RoleNames(), access.RoleSuperAdmin) && !slices.Contains(roleNames, access.RoleSuperAdmin) {
		return nil, apperr.InvalidState("self_demotion", "super admins cannot remove their own super admin role")
	}
	roles, err := s.resolveRoles(ctx, roleNames)
	if err != nil {
		return nil, err
	}
	before := user.RoleNames()
	if err := s.store.ReplaceUserRoles(ctx, user, roles); err != nil {
		return nil, err
	}
	user.Roles = roles
	s.audit.Record(ctx, actor, "auth.user.roles", "user", id, map[string][]string{"roles": before}, map[string][]string{"roles": user.RoleNames()})
	return user, nil
}

func (s *Service) Unlock(ctx context.Context, actor access.Actor, id string) (*User, error) {
	if err := s.store.UpdateUserFields(ctx, id, map[string]any{"locked": false, "failed_logins": 0}); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "auth.user.unlock", "user", id, nil, nil)
	return s.store.GetUser(ctx, id)
}

// checkGrant allows only super admins to change roles of an account that
// holds or would receive SUPER_ADMIN.
func (s *Service) checkGrant(actor access.Actor, current, requested []string) error {
	touchesSuper := slices.Contains(requested, access.RoleSuperAdmin) || slices.Contains(current, access.RoleSuperAdmin)
	if touchesSuper && !actor.IsSuperAdmin() {
		return apperr.Forbidden("only a super admin can grant or revoke SUPER_ADMIN")
	}
	return nil
}

func (s *Service) resolveRoles(ctx context.Context, names []string) ([]Role, error) {
	unique := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name != "" && !slices.Contains(unique, name) {
			unique = append(unique, name)
		}
	}
	roles, err := s.store.RolesByName(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(unique) {
		return nil, apperr.Validation("roles", "contains unknown role")
	}
	return roles, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

func (s *Service) CreateRole(ctx context.Context, actor access.Actor, in RoleInput) (*Role, error) {
	name := strings.ToUpper(strings.TrimSpace(in.Name))
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	if _, err := s.store.FindRoleByName(ctx, name); err == nil {
		return nil, apperr.Conflict("role_exists", "role name already exists")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	perms, err := s.resolvePermissions(ctx, in.Permissions)
	if err != nil {
		return nil, err
	}
	role := &Role{Name: name, Description: in.Description, Permissions: perms}
	if err := s.store.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	s.invalidatePermissions()
	s.audit.Record(ctx, actor, "auth.role.create", "role", role.ID, nil, role)
	return role, nil
}

func (s *Service) UpdateRole(ctx context.Context, actor access.Actor, id string, in RoleInput) (*Role, error) {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.Name == access.RoleSuperAdmin {
		return nil, apperr.InvalidState("role_immutable", "SUPER_ADMIN always holds every permission")
	}
	perms, err := s.resolvePermissions(ctx, in.Permissions)
	if err != nil {
		return nil, err
	}
	before := *role
	role.Description = in.Description
	if err := s.store.SaveRole(ctx, role, perms); err != nil {
		return nil, err
	}
	role.Permissions = perms
	s.invalidatePermissions()
	s.audit.Record(ctx, actor, "auth.role.update", "role", id, before, role)
	return role, nil
}

func (s *Service) DeleteRole(ctx context.Context, actor access.Actor, id string) error {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.BuiltIn {
		return apperr.InvalidState("role_builtin", "built-in roles cannot be deleted")
	}
	assigned, err := s.store.CountRoleAssignments(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return apperr.Conflict("role_in_use", "role is assigned to users")
	}
	if err := s.store.DeleteRole(ctx, role); err != nil {
		return err
	}
	s.invalidatePermissions()
	s.audit.Record(ctx, actor, "auth.role.delete", "role", id, role, nil)
	return nil
}

func (s *Service) resolvePermissions(ctx context.Context, names []string) ([]Permission, error) {
	perms, err := s.store.PermissionsByName(ctx, names)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, name := range names {
		seen[name] = true
	}
	if len(perms) != len(seen) {
		return nil, apperr.Validation("permissions", "contains unknown permission")
	}
	return perms, nil
}
