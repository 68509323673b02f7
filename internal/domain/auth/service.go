package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/platform/crypto"
	"hrms/internal/platform/email"
	"hrms/internal/platform/revocation"
)

type Options struct {
	JWTSecret       string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AllowSelfSignup bool
}

// LoginObserver counts login outcomes.
type LoginObserver interface {
	ObserveLogin(result string)
}

type Service struct {
	store   *Store
	tokens  *TokenIssuer
	opts    Options
	sealer  *crypto.Sealer
	revoked revocation.Store
	mailer  email.Mailer
	audit   audit.Recorder
	logins  LoginObserver
	log     *zap.Logger
	now     func() time.Time

	permMu     sync.RWMutex
	perms      map[string]map[string]struct{}
	permLoaded time.Time
}

func NewService(store *Store, opts Options, sealer *crypto.Sealer, revoked revocation.Store, mailer email.Mailer, recorder audit.Recorder, logins LoginObserver, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:   store,
		tokens:  NewTokenIssuer(opts.JWTSecret, opts.Issuer, opts.AccessTokenTTL),
		opts:    opts,
		sealer:  sealer,
		revoked: revoked,
		mailer:  mailer,
		audit:   recorder,
		logins:  logins,
		log:     log.Named("auth"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) observeLogin(result string) {
	if s.logins != nil {
		s.logins.ObserveLogin(result)
	}
}

var errInvalidCredentials = apperr.Unauthorized("invalid_credentials", "invalid credentials")

func (s *Service) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	user, err := s.store.FindUserByLogin(ctx, in.Login)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.observeLogin(loginFailure)
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.Enabled {
		s.observeLogin(loginFailure)
		return nil, apperr.Unauthorized("account_disabled", "account is disabled")
	}
	if user.Locked {
		s.observeLogin(loginLocked)
		return nil, apperr.Unauthorized("account_locked", "account is locked")
	}

	if CheckPassword(user.PasswordHash, in.Password) != nil {
		failed := user.FailedLogins + 1
		fields := map[string]any{"failed_logins": failed}
		if failed >= MaxFailedLogins {
			fields["locked"] = true
		}
		if err := s.store.UpdateUserFields(ctx, user.ID, fields); err != nil {
			return nil, err
		}
		if failed >= MaxFailedLogins {
			s.log.Warn("account locked after failed logins", zap.String("user_id", user.ID))
			s.audit.Record(ctx, access.Actor{UserID: user.ID, IP: in.IP}, "auth.user.locked", "user", user.ID, nil, nil)
			s.observeLogin(loginLocked)
			return nil, apperr.Unauthorized("account_locked", "account is locked")
		}
		s.observeLogin(loginFailure)
		return nil, errInvalidCredentials
	}

	if user.MFAEnabled {
		if strings.TrimSpace(in.MFACode) == "" {
			s.observeLogin(loginFailure)
			return nil, apperr.Unauthorized("mfa_required", "mfa code required")
		}
		ok, err := s.validateTOTP(user, in.MFACode)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.observeLogin(loginFailure)
			return nil, apperr.Unauthorized("invalid_mfa_code", "invalid mfa code")
		}
	}

	now := s.now()
	if err := s.store.UpdateUserFields(ctx, user.ID, map[string]any{"failed_logins": 0, "last_login_at": now}); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	user.FailedLogins = 0

	pair, err := s.startSession(ctx, user, in.IP, in.Agent)
	if err != nil {
		return nil, err
	}
	s.observeLogin(loginSuccess)
	return pair, nil
}

func (s *Service) startSession(ctx context.Context, user *User, ip, agent string) (*TokenPair, error) {
	refresh, err := crypto.RandomToken(refreshTokenSize)
	if err != nil {
		return nil, err
	}
	session := Session{
		UserID:      user.ID,
		RefreshHash: crypto.HashToken(refresh),
		ExpiresAt:   s.now().Add(s.opts.RefreshTokenTTL),
		IP:          ip,
		UserAgent:   truncate(agent, 255),
	}
	if err := s.store.CreateSession(ctx, &session); err != nil {
		return nil, err
	}
	accessToken, _, err := s.tokens.Issue(*user, session.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.opts.AccessTokenTTL.Seconds()),
		User:         user,
	}, nil
}

// Refresh rotates the session behind refreshToken. Presenting an already
// rotated token revokes every session of the user.
func (s *Service) Refresh(ctx context.Context, refreshToken, ip, agent string) (*TokenPair, error) {
	invalid := apperr.Unauthorized("invalid_refresh_token", "refresh token is invalid or expired")
	if strings.TrimSpace(refreshToken) == "" {
		return nil, invalid
	}
	session, err := s.store.FindSessionByHash(ctx, crypto.HashToken(refreshToken))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	now := s.now()
	if session.RevokedAt != nil {
		s.log.Warn("revoked refresh token reused", zap.String("user_id", session.UserID))
		if err := s.store.RevokeUserSessions(ctx, session.UserID, now); err != nil {
			return nil, err
		}
		return nil, invalid
	}
	if !now.Before(session.ExpiresAt) {
		return nil, invalid
	}
	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Enabled || user.Locked {
		return nil, invalid
	}
	revoked, err := s.store.RevokeSession(ctx, session.ID, now)
	if err != nil {
		return nil, err
	}
	if !revoked {
		return nil, invalid
	}
	return s.startSession(ctx, user, ip, agent)
}

// Logout revokes the caller's session and blocks the access token until it expires.
func (s *Service) Logout(ctx context.Context, actor access.Actor) error {
	if actor.SessionID != "" {
		if _, err := s.store.RevokeSession(ctx, actor.SessionID, s.now()); err != nil {
			return err
		}
	}
	if actor.TokenID != "" {
		if err := s.revoked.Revoke(ctx, actor.TokenID, actor.TokenExpiry.Sub(s.now())); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	s.audit.Record(ctx, actor, "auth.logout", "user", actor.UserID, nil, nil)
	return nil
}

// VerifyAccessToken validates signature, expiry and revocation. Tokens stop
// working as soon as their session is revoked or the user is disabled or locked.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (access.Actor, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return access.Actor{}, apperr.Wrap(apperr.KindUnauthorized, "invalid_token", "invalid token", err)
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return access.Actor{}, err
	}
	if revoked {
		return access.Actor{}, apperr.Unauthorized("token_revoked", "token has been revoked")
	}
	active, err := s.store.ActiveLogin(ctx, claims.UserID, claims.SessionID, s.now())
	if err != nil {
		return access.Actor{}, err
	}
	if !active {
		return access.Actor{}, apperr.Unauthorized("session_inactive", "session is no longer active")
	}
	actor := access.Actor{
		UserID:     claims.UserID,
		EmployeeID: claims.EmployeeID,
		Roles:      claims.Roles,
		SessionID:  claims.SessionID,
		TokenID:    claims.ID,
	}
	if claims.ExpiresAt != nil {
		actor.TokenExpiry = claims.ExpiresAt.Time
	}
	return actor, nil
}

func (s *Service) Register(ctx context.Context, username, emailAddr, password string) (*User, error) {
	if !s.opts.AllowSelfSignup {
		return nil, apperr.Forbidden("self signup is disabled")
	}
	if err := ValidatePassword("password", password); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, CreateUserInput{
		Username: username,
		Email:    emailAddr,
		Password: password,
		Roles:    []string{access.RoleUser},
		Enabled:  true,
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, access.Actor{UserID: user.ID}, "auth.register", "user", user.ID, nil, user)
	return user, nil
}

// RequestPasswordReset never reveals whether the address is known.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := s.store.FindUserByLogin(ctx, emailAddr)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			s.log.Error("password reset lookup failed", zap.Error(err))
		}
		return nil
	}
	if !strings.EqualFold(user.Email, strings.TrimSpace(emailAddr)) || !user.Enabled {
		return nil
	}
	token, err := crypto.RandomToken(32)
	if err != nil {
		return err
	}
	reset := PasswordReset{
		UserID:    user.ID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.now().Add(PasswordResetTTL),
	}
	if err := s.store.CreatePasswordReset(ctx, &reset); err != nil {
		return err
	}
	msg := email.Message{
		To:      user.Email,
		Subject: "Password reset",
		Body:    BuildResetEmailBody(token, PasswordResetTTL),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn("password reset email failed", zap.Error(err), zap.String("user_id", user.ID))
	}
	s.audit.Record(ctx, access.Actor{UserID: user.ID}, "auth.password_reset.requested", "user", user.ID, nil, nil)
	return nil
}

func BuildResetEmailBody(token string, ttl time.Duration) string {
	return fmt.Sprintf("A password reset was requested for your account.\n\nReset token: %s\n\nThe token expires in %d minute(s). If you did not request this, ignore this message.\n", token, int(ttl.Minutes()))
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword("newPassword", newPassword); err != nil {
		return err
	}
	now := s.now()
	reset, err := s.store.FindActivePasswordReset(ctx, crypto.HashToken(token), now)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.InvalidState("invalid_reset_token", "reset token is invalid or expired")
		}
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	err = s.store.Transaction(ctx, func(st *Store) error {
		if err := st.UpdateUserFields(ctx, reset.UserID, map[string]any{
			"password_hash": hash,
			"failed_logins": 0,
			"locked":        false,
		}); err != nil {
			return err
		}
		if err := st.MarkPasswordResetUsed(ctx, reset.ID, now); err != nil {
			return err
		}
		return st.RevokeUserSessions(ctx, reset.UserID, now)
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, access.Actor{UserID: reset.UserID}, "auth.password_reset.completed", "user", reset.UserID, nil, nil)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, actor access.Actor, current, next string) error {
	user, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if CheckPassword(user.PasswordHash, current) != nil {
		return apperr.Validation("currentPassword", "is incorrect")
	}
	if current == next {
		return apperr.Validation("newPassword", "must differ from the current password")
	}
	if err := ValidatePassword("newPassword", next); err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserFields(ctx, user.ID, map[string]any{"password_hash": hash}); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "auth.password.changed", "user", user.ID, nil, nil)
	return nil
}

func (s *Service) Me(ctx context.Context, actor access.Actor) (*User, error) {
	return s.store.GetUser(ctx, actor.UserID)
}

// HasPermission answers from a short-lived cache of role grants.
func (s *Service) HasPermission(ctx context.Context, roles []string, permission string) (bool, error) {
	perms, err := s.permissionSnapshot(ctx)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if _, ok := perms[role][permission]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) permissionSnapshot(ctx context.Context) (map[string]map[string]struct{}, error) {
	s.permMu.RLock()
	if s.perms != nil && s.now().Sub(s.permLoaded) < permissionTTL {
		perms := s.perms
		s.permMu.RUnlock()
		return perms, nil
	}
	s.permMu.RUnlock()

	grants, err := s.store.RolePermissionNames(ctx)
	if err != nil {
		return nil, err
	}
	perms := make(map[string]map[string]struct{}, len(grants))
	for role, names := range grants {
		set := make(map[string]struct{}, len(names))
		for _, name := range names {
			set[name] = struct{}{}
		}
		perms[role] = set
	}
	s.permMu.Lock()
	s.perms = perms
	s.permLoaded = s.now()
	s.permMu.Unlock()
	return perms, nil
}

func (s *Service) invalidatePermissions() {
	s.permMu.Lock()
	s.perms = nil
	s.permMu.Unlock()
}

// LinkEmployee points a user at its employee record; an empty employeeID unlinks.
func (s *Service) LinkEmployee(ctx context.Context, userID, employeeID string) error {
	var value any
	if employeeID != "" {
		value = employeeID
	}
	return s.store.UpdateUserFields(ctx, userID, map[string]any{"employee_id": value})
}

// EmailForUser satisfies the notification mailer lookup.
func (s *Service) EmailForUser(ctx context.Context, userID string) (string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func truncate(value string, n int) string {
	if len(value) <= n {
		return value
	}
	return value[:n]
}
