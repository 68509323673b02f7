package auth

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"hrms/internal/platform/db"
)

type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) withTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) Transaction(ctx context.Context, fn func(st *Store) error) error {
	return db.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		return fn(s.withTx(tx))
	})
}

func (s *Store) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	var user User
	err := s.db.WithContext(ctx).Preload("Roles").
		Where("LOWER(email) = ? OR LOWER(username) = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, db.TranslateError(err, "user")
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "user")
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *User) error {
	return db.TranslateError(s.db.WithContext(ctx).Omit("Roles.*").Create(user).Error, "user")
}

// UpdateUserFields writes the given columns only.
func (s *Store) UpdateUserFields(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return db.TranslateError(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

func (s *Store) ReplaceUserRoles(ctx context.Context, user *User, roles []Role) error {
	return s.db.WithContext(ctx).Model(user).Association("Roles").Replace(roles)
}

func (s *Store) SearchUsers(ctx context.Context, criteria UserCriteria, limit, offset int) ([]User, int64, error) {
	q := s.db.WithContext(ctx).Model(&User{})
	if criteria.Username != "" {
		q = q.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(criteria.Username)+"%")
	}
	if criteria.Email != "" {
		q = q.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(criteria.Email)+"%")
	}
	if criteria.Enabled != nil {
		q = q.Where("enabled = ?", *criteria.Enabled)
	}
	if criteria.Role != "" {
		q = q.Where("id IN (?)", s.db.Table("user_roles").
			Select("user_roles.user_id").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.name = ?", criteria.Role))
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []User
	err := db.Paginate(q.Preload("Roles").Order("username"), limit, offset).Find(&users).Error
	return users, total, err
}

func (s *Store) RolesByName(ctx context.Context, names []string) ([]Role, error) {
	var roles []Role
	if len(names) == 0 {
		return roles, nil
	}
	err := s.db.WithContext(ctx).Where("name IN ?", names).Find(&roles).Error
	return roles, err
}

func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := s.db.WithContext(ctx).Preload("Permissions").Order("name").Find(&roles).Error
	return roles, err
}

func (s *Store) GetRole(ctx context.Context, id string) (*Role, error) {
	var role Role
	if err := s.db.WithContext(ctx).Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "role")
	}
	return &role, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	var role Role
	if err := s.db.WithContext(ctx).Preload("Permissions").First(&role, "name = ?", name).Error; err != nil {
		return nil, db.TranslateError(err, "role")
	}
	return &role, nil
}

func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	return db.TranslateError(s.db.WithContext(ctx).Omit("Permissions.*").Create(role).Error, "role")
}

func (s *Store) SaveRole(ctx context.Context, role *Role, perms []Permission) error {
	if err := s.db.WithContext(ctx).Model(role).Update("description", role.Description).Error; err != nil {
		return db.TranslateError(err, "role")
	}
	return s.db.WithContext(ctx).Model(role).Association("Permissions").Replace(perms)
}

func (s *Store) DeleteRole(ctx context.Context, role *Role) error {
	if err := s.db.WithContext(ctx).Model(role).Association("Permissions").Clear(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(role).Error
}

func (s *Store) CountRoleAssignments(ctx context.Context, roleID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Table("user_roles").Where("role_id = ?", roleID).Count(&n).Error
	return n, err
}

func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	err := s.db.WithContext(ctx).Order("name").Find(&perms).Error
	return perms, err
}

func (s *Store) PermissionsByName(ctx context.Context, names []string) ([]Permission, error) {
	var perms []Permission
	if len(names) == 0 {
		return perms, nil
	}
	err := s.db.WithContext(ctx).Where("name IN ?", names).Find(&perms).Error
	return perms, err
}

// RolePermissionNames maps every role name to its granted permission names.
func (s *Store) RolePermissionNames(ctx context.Context) (map[string][]string, error) {
	type row struct {
		Role       string
		Permission string
	}
	var rows []row
	err := s.db.WithContext(ctx).Table("role_permissions").
		Select("roles.name AS role, permissions.name AS permission").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[string][]string{}
	for _, r := range rows {
		out[r.Role] = append(out[r.Role], r.Permission)
	}
	return out, nil
}

func (s *Store) CreateSession(ctx context.Context, session *Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *Store) FindSessionByHash(ctx context.Context, hash string) (*Session, error) {
	var session Session
	if err := s.db.WithContext(ctx).First(&session, "refresh_hash = ?", hash).Error; err != nil {
		return nil, db.TranslateError(err, "session")
	}
	return &session, nil
}

// RevokeSession marks an active session revoked and reports whether it was active.
func (s *Store) RevokeSession(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}

// ActiveLogin reports whether the user may still act and, when sessionID is
// set, whether that session is live.
func (s *Store) ActiveLogin(ctx context.Context, userID, sessionID string, now time.Time) (bool, error) {
	q := s.db.WithContext(ctx).Table("users").
		Where("users.id = ? AND users.enabled = ? AND users.locked = ?", userID, true, false)
	if sessionID != "" {
		q = q.Joins("JOIN sessions ON sessions.user_id = users.id").
			Where("sessions.id = ? AND sessions.revoked_at IS NULL AND sessions.expires_at > ?", sessionID, now)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CreatePasswordReset(ctx context.Context, reset *PasswordReset) error {
	return s.db.WithContext(ctx).Create(reset).Error
}

func (s *Store) FindActivePasswordReset(ctx context.Context, hash string, now time.Time) (*PasswordReset, error) {
	var reset PasswordReset
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", hash, now).
		First(&reset).Error
	if err != nil {
		return nil, db.TranslateError(err, "password reset")
	}
	return &reset, nil
}

func (s *Store) MarkPasswordResetUsed(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&PasswordReset{}).Where("id = ?", id).Update("used_at", at).Error
}

func (s *Store) EnsurePermission(ctx context.Context, name string) (*Permission, error) {
	perm := Permission{Name: name}
	err := s.db.WithContext(ctx).Where(Permission{Name: name}).FirstOrCreate(&perm).Error
	return &perm, err
}

func (s *Store) EnsureRole(ctx context.Context, name, description string) (*Role, error) {
	role := Role{Name: name, Description: description, BuiltIn: true}
	err := s.db.WithContext(ctx).Where(Role{Name: name}).Attrs(Role{Description: description, BuiltIn: true}).FirstOrCreate(&role).Error
	return &role, err
}

func (s *Store) AppendRolePermissions(ctx context.Context, role *Role, perms []Permission) error {
	if len(perms) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(role).Association("Permissions").Append(perms)
}
