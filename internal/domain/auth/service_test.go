package auth

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/platform/crypto"
	"hrms/internal/platform/db"
	"hrms/internal/platform/db/dbtest"
	"hrms/internal/platform/email"
	"hrms/internal/platform/revocation"
)

type capturingMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *capturingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type loginCounter map[string]int

func (c loginCounter) ObserveLogin(result string) { c[result]++ }

type fixture struct {
	svc    *Service
	mailer *capturingMailer
	logins loginCounter
	super  access.Actor
}

func newFixture(t *testing.T, signup bool) *fixture {
	t.Helper()
	gdb := dbtest.Open(t, Models...)
	sealer, err := crypto.New("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	mailer := &capturingMailer{}
	logins := loginCounter{}
	svc := NewService(NewStore(gdb), Options{
		JWTSecret:       "test-secret",
		Issuer:          "hrms-test",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		AllowSelfSignup: signup,
	}, sealer, revocation.NewMemory(), mailer, audit.Nop{}, logins, zap.NewNop())
	require.NoError(t, svc.Seed(context.Background(), "root@example.com", "RootPass123"))

	root, err := svc.store.FindUserByLogin(context.Background(), "root@example.com")
	require.NoError(t, err)
	return &fixture{
		svc:    svc,
		mailer: mailer,
		logins: logins,
		super:  access.Actor{UserID: root.ID, Roles: []string{access.RoleSuperAdmin}},
	}
}

func (f *fixture) createUser(t *testing.T, username string, roles ...string) *User {
	t.Helper()
	user, err := f.svc.CreateUser(context.Background(), f.super, CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Password123",
		Roles:    roles,
		Enabled:  true,
	})
	require.NoError(t, err)
	return user
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid password", password: "Stronger123"},
		{name: "too short", password: "S1hort", wantErr: true},
		{name: "missing uppercase", password: "longpassword1", wantErr: true},
		{name: "missing lowercase", password: "LONGPASSWORD1", wantErr: true},
		{name: "missing number", password: "LongPassword", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword("password", tc.password)
			if tc.wantErr {
				require.True(t, apperr.Is(err, apperr.KindValidation))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", "hrms", time.Minute)
	emp := "emp-1"
	token, claims, err := issuer.Issue(User{Model: db.Model{ID: "u1"}, EmployeeID: &emp, Roles: []Role{{Name: access.RoleHR}}}, "s1")
	require.NoError(t, err)

	parsed, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", parsed.UserID)
	assert.Equal(t, "emp-1", parsed.EmployeeID)
	assert.Equal(t, []string{access.RoleHR}, parsed.Roles)
	assert.Equal(t, claims.ID, parsed.ID)

	_, err = NewTokenIssuer("other", "hrms", time.Minute).Parse(token)
	require.Error(t, err)

	_, err = NewTokenIssuer("secret", "someone-else", time.Minute).Parse(token)
	require.Error(t, err)

	late := NewTokenIssuer("secret", "hrms", time.Minute)
	late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = late.Parse(token)
	require.Error(t, err)
}

func TestLoginAndLockout(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.createUser(t, "alice", access.RoleUser)

	pair, err := f.svc.Login(ctx, LoginInput{Login: "ALICE@example.com", Password: "Password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 900, pair.ExpiresIn)

	_, err = f.svc.Login(ctx, LoginInput{Login: "alice", Password: "Password123"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Login: "nobody", Password: "x"})
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	for i := 1; i < MaxFailedLogins; i++ {
		_, err = f.svc.Login(ctx, LoginInput{Login: "alice", Password: "wrong"})
		require.True(t, apperr.Is(err, apperr.KindUnauthorized))
	}
	_, err = f.svc.Login(ctx, LoginInput{Login: "alice", Password: "wrong"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "account_locked", appErr.Code)

	_, err = f.svc.Login(ctx, LoginInput{Login: "alice", Password: "Password123"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "account_locked", appErr.Code)

	user, err := f.svc.store.FindUserByLogin(ctx, "alice")
	require.NoError(t, err)
	_, err = f.svc.Unlock(ctx, f.super, user.ID)
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, LoginInput{Login: "alice", Password: "Password123"})
	require.NoError(t, err)
	assert.Equal(t, 3, f.logins[loginSuccess])
}

func TestDisabledUserCannotLogin(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	bob := f.createUser(t, "bob")

	_, err := f.svc.SetEnabled(ctx, f.super, bob.ID, false)
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, LoginInput{Login: "bob", Password: "Password123"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "account_disabled", appErr.Code)

	_, err = f.svc.SetEnabled(ctx, f.super, f.super.UserID, false)
	require.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestRefreshRotationAndReuse(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.createUser(t, "carol")

	first, err := f.svc.Login(ctx, LoginInput{Login: "carol", Password: "Password123"})
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, first.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Refresh(ctx, first.RefreshToken, "", "")
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	// reuse of a rotated token revokes the whole family
	_, err = f.svc.Refresh(ctx, second.RefreshToken, "", "")
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = f.svc.Refresh(ctx, "garbage", "", "")
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.createUser(t, "dave", access.RoleManager)

	pair, err := f.svc.Login(ctx, LoginInput{Login: "dave", Password: "Password123"})
	require.NoError(t, err)

	actor, err := f.svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{access.RoleManager}, actor.Roles)
	assert.NotEmpty(t, actor.TokenID)

	require.NoError(t, f.svc.Logout(ctx, actor))

	_, err = f.svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = f.svc.Refresh(ctx, pair.RefreshToken, "", "")
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestAccessTokenFollowsAccountState(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	user := f.createUser(t, "frank", access.RoleUser)

	pair, err := f.svc.Login(ctx, LoginInput{Login: "frank", Password: "Password123"})
	require.NoError(t, err)
	_, err = f.svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)

	_, err = f.svc.SetEnabled(ctx, f.super, user.ID, false)
	require.NoError(t, err)
	_, err = f.svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized), "disabled user kept access: %v", err)

	// re-enabling does not revive the revoked session
	_, err = f.svc.SetEnabled(ctx, f.super, user.ID, true)
	require.NoError(t, err)
	_, err = f.svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	pair, err = f.svc.Login(ctx, LoginInput{Login: "frank", Password: "Password123"})
	require.NoError(t, err)
	require.NoError(t, f.svc.store.UpdateUserFields(ctx, user.ID, map[string]any{"locked": true}))
	_, err = f.svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized), "locked user kept access: %v", err)

	_, err = f.svc.Unlock(ctx, f.super, user.ID)
	require.NoError(t, err)
	_, err = f.svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
}

var tokenPattern = regexp.MustCompile(`Reset token: (\S+)`)

func TestPasswordReset(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.createUser(t, "erin")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "unknown@example.com"))
	require.Empty(t, f.mailer.sent)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "erin@example.com"))
	require.Len(t, f.mailer.sent, 1)
	match := tokenPattern.FindStringSubmatch(f.mailer.sent[0].Body)
	require.Len(t, match, 2)
	token := match[1]

	err := f.svc.ResetPassword(ctx, token, "weak")
	require.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, f.svc.ResetPassword(ctx, token, "BrandNew456"))
	err = f.svc.ResetPassword(ctx, token, "BrandNew789")
	require.True(t, apperr.Is(err, apperr.KindInvalidState))

	_, err = f.svc.Login(ctx, LoginInput{Login: "erin", Password: "BrandNew456"})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	user := f.createUser(t, "frank")
	actor := access.Actor{UserID: user.ID}

	err := f.svc.ChangePassword(ctx, actor, "wrong", "Another123")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	err = f.svc.ChangePassword(ctx, actor, "Password123", "Password123")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.NoError(t, f.svc.ChangePassword(ctx, actor, "Password123", "Another123"))

	_, err = f.svc.Login(ctx, LoginInput{Login: "frank", Password: "Another123"})
	require.NoError(t, err)
}

func TestMFAFlow(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	user := f.createUser(t, "gina")
	actor := access.Actor{UserID: user.ID}

	require.True(t, apperr.Is(f.svc.EnableMFA(ctx, actor, "000000"), apperr.KindInvalidState))

	setup, err := f.svc.SetupMFA(ctx, actor)
	require.NoError(t, err)
	assert.Contains(t, setup.OTPAuthURL, "otpauth://totp/")

	stored, err := f.svc.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(stored.MFASecretEnc), setup.Secret)

	require.True(t, apperr.Is(f.svc.EnableMFA(ctx, actor, "000000"), apperr.KindValidation))
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.svc.EnableMFA(ctx, actor, code))

	_, err = f.svc.Login(ctx, LoginInput{Login: "gina", Password: "Password123"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "mfa_required", appErr.Code)

	_, err = f.svc.Login(ctx, LoginInput{Login: "gina", Password: "Password123", MFACode: code})
	require.NoError(t, err)

	require.NoError(t, f.svc.DisableMFA(ctx, actor, code))
	_, err = f.svc.Login(ctx, LoginInput{Login: "gina", Password: "Password123"})
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	closed := newFixture(t, false)
	_, err := closed.svc.Register(context.Background(), "hank", "hank@example.com", "Password123")
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	open := newFixture(t, true)
	user, err := open.svc.Register(context.Background(), "hank", "hank@example.com", "Password123")
	require.NoError(t, err)
	assert.Equal(t, []string{access.RoleUser}, user.RoleNames())

	_, err = open.svc.Register(context.Background(), "hank2", "HANK@example.com", "Password123")
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestPermissionsFromSeed(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	ok, err := f.svc.HasPermission(ctx, []string{access.RoleUser}, access.PermLeaveWrite)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.HasPermission(ctx, []string{access.RoleUser}, access.PermEmployeesWrite)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.HasPermission(ctx, []string{access.RoleUser, access.RoleHR}, access.PermEmployeesWrite)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.svc.Seed(ctx, "root@example.com", "RootPass123"), "seed must be idempotent")
	perms, err := f.svc.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, len(access.DefaultPermissions))
}

func TestRoleAdministration(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	admin := access.Actor{UserID: "admin-1", Roles: []string{access.RoleAdmin}}

	role, err := f.svc.CreateRole(ctx, admin, RoleInput{Name: "auditor", Permissions: []string{access.PermAuditRead}})
	require.NoError(t, err)
	assert.Equal(t, "AUDITOR", role.Name)

	_, err = f.svc.CreateRole(ctx, admin, RoleInput{Name: "AUDITOR"})
	require.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = f.svc.CreateRole(ctx, admin, RoleInput{Name: "x", Permissions: []string{"nope"}})
	require.True(t, apperr.Is(err, apperr.KindValidation))

	ok, err := f.svc.HasPermission(ctx, []string{"AUDITOR"}, access.PermAuditRead)
	require.NoError(t, err)
	assert.True(t, ok)

	updated, err := f.svc.UpdateRole(ctx, admin, role.ID, RoleInput{Description: "read only", Permissions: []string{access.PermReportsRead}})
	require.NoError(t, err)
	require.Len(t, updated.Permissions, 1)
	ok, err = f.svc.HasPermission(ctx, []string{"AUDITOR"}, access.PermAuditRead)
	require.NoError(t, err)
	assert.False(t, ok)

	user := f.createUser(t, "ivan", "AUDITOR")
	require.True(t, apperr.Is(f.svc.DeleteRole(ctx, admin, role.ID), apperr.KindConflict))
	_, err = f.svc.AssignRoles(ctx, admin, user.ID, []string{access.RoleUser})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteRole(ctx, admin, role.ID))

	builtIn, err := f.svc.store.FindRoleByName(ctx, access.RoleUser)
	require.NoError(t, err)
	require.True(t, apperr.Is(f.svc.DeleteRole(ctx, admin, builtIn.ID), apperr.KindInvalidState))
}

func TestOnlySuperAdminGrantsSuperAdmin(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	admin := access.Actor{UserID: "admin-1", Roles: []string{access.RoleAdmin}}
	user := f.createUser(t, "judy")

	_, err := f.svc.AssignRoles(ctx, admin, user.ID, []string{access.RoleSuperAdmin})
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.CreateUser(ctx, admin, CreateUserInput{Username: "kim", Email: "kim@example.com", Password: "Password123", Roles: []string{access.RoleSuperAdmin}})
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	updated, err := f.svc.AssignRoles(ctx, f.super, user.ID, []string{access.RoleSuperAdmin, access.RoleHR})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{access.RoleSuperAdmin, access.RoleHR}, updated.RoleNames())

	_, err = f.svc.AssignRoles(ctx, admin, user.ID, []string{access.RoleHR})
	require.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.createUser(t, "liam", access.RoleManager)
	f.createUser(t, "lucy", access.RoleUser)
	mia := f.createUser(t, "mia", access.RoleManager)
	_, err := f.svc.SetEnabled(ctx, f.super, mia.ID, false)
	require.NoError(t, err)

	users, total, err := f.svc.SearchUsers(ctx, UserCriteria{Role: access.RoleManager}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	enabled := true
	users, total, err = f.svc.SearchUsers(ctx, UserCriteria{Username: "L", Enabled: &enabled}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "liam", users[0].Username)
	require.NotEmpty(t, users[0].Roles)
}
