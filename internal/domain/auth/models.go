package auth

import (
	"time"

	"hrms/internal/platform/db"
)

type User struct {
	db.Model
	Username     string     `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"`
	Enabled      bool       `gorm:"not null" json:"enabled"`
	Locked       bool       `gorm:"not null" json:"locked"`
	FailedLogins int        `gorm:"not null" json:"-"`
	MFAEnabled   bool       `gorm:"column:mfa_enabled;not null" json:"mfaEnabled"`
	MFASecretEnc []byte     `gorm:"column:mfa_secret_enc" json:"-"`
	EmployeeID   *string    `gorm:"size:36;index" json:"employeeId,omitempty"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	Roles        []Role     `gorm:"many2many:user_roles" json:"roles"`
}

func (User) TableName() string { return "users" }

func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}

type Role struct {
	db.Model
	Name        string       `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description string       `gorm:"size:255" json:"description"`
	BuiltIn     bool         `gorm:"not null" json:"builtIn"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

func (Role) TableName() string { return "roles" }

type Permission struct {
	db.Model
	Name        string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}

func (Permission) TableName() string { return "permissions" }

type Session struct {
	db.Model
	UserID      string    `gorm:"size:36;not null;index"`
	RefreshHash string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt   time.Time `gorm:"not null"`
	RevokedAt   *time.Time
	UserAgent   string `gorm:"size:255"`
	IP          string `gorm:"size:64"`
}

func (Session) TableName() string { return "sessions" }

type PasswordReset struct {
	db.Model
	UserID    string    `gorm:"size:36;not null;index"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
}

func (PasswordReset) TableName() string { return "password_resets" }

// Models lists every table owned by this package, for test migrations.
var Models = []any{&User{}, &Role{}, &Permission{}, &Session{}, &PasswordReset{}}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
	User         *User  `json:"user,omitempty"`
}

type LoginInput struct {
	Login    string
	Password string
	MFACode  string
	IP       string
	Agent    string
}

type UserCriteria struct {
	Username string
	Email    string
	Enabled  *bool
	Role     string
}

type CreateUserInput struct {
	Username   string
	Email      string
	Password   string
	Roles      []string
	EmployeeID *string
	Enabled    bool
}

type UpdateUserInput struct {
	Username   *string
	Email      *string
	EmployeeID *string
}

type RoleInput struct {
	Name        string
	Description string
	Permissions []string
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}
