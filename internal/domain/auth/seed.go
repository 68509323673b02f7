package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
)

var roleDescriptions = map[string]string{
	access.RoleUser:       "Employee self service",
	access.RoleManager:    "Line manager of direct reports",
	access.RoleHR:         "Human resources staff",
	access.RoleAdmin:      "System administrator",
	access.RoleSuperAdmin: "Unrestricted access",
}

// Seed creates missing permissions, built-in roles with their default grants
// and, when adminEmail is set, a SUPER_ADMIN account. Existing grants and
// users are left alone, so it is safe to run on every start.
func (s *Service) Seed(ctx context.Context, adminEmail, adminPassword string) error {
	perms := map[string]Permission{}
	for _, name := range access.DefaultPermissions {
		perm, err := s.store.EnsurePermission(ctx, name)
		if err != nil {
			return fmt.Errorf("seed permission %s: %w", name, err)
		}
		perms[name] = *perm
	}

	roles := map[string]*Role{}
	for _, name := range access.BuiltInRoles {
		role, err := s.store.EnsureRole(ctx, name, roleDescriptions[name])
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		grants := make([]Permission, 0, len(access.RolePermissions[name]))
		for _, permName := range access.RolePermissions[name] {
			grants = append(grants, perms[permName])
		}
		if err := s.store.AppendRolePermissions(ctx, role, grants); err != nil {
			return fmt.Errorf("seed grants for %s: %w", name, err)
		}
		roles[name] = role
	}
	s.invalidatePermissions()

	adminEmail = strings.ToLower(strings.TrimSpace(adminEmail))
	if adminEmail == "" {
		return nil
	}
	if _, err := s.store.FindUserByLogin(ctx, adminEmail); err == nil {
		return nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	if adminPassword == "" {
		s.log.Warn("SEED_ADMIN_EMAIL set without SEED_ADMIN_PASSWORD, skipping admin account")
		return nil
	}
	hash, err := HashPassword(adminPassword)
	if err != nil {
		return err
	}
	admin := &User{
		Username:     strings.SplitN(adminEmail, "@", 2)[0],
		Email:        adminEmail,
		PasswordHash: hash,
		Enabled:      true,
		Roles:        []Role{*roles[access.RoleSuperAdmin]},
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Info("seeded admin account", zap.String("email", adminEmail))
	return nil
}
