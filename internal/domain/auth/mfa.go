package auth

import (
	"context"
	"strings"

	"github.com/pquerna/otp/totp"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
)

// SetupMFA generates and stores a new TOTP secret. MFA stays disabled until
// EnableMFA confirms a code from the authenticator.
func (s *Service) SetupMFA(ctx context.Context, actor access.Actor) (*MFASetup, error) {
	user, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, apperr.InvalidState("mfa_already_enabled", "mfa is already enabled")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.opts.Issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, err
	}
	sealed, err := s.sealer.SealString(key.Secret())
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateUserFields(ctx, user.ID, map[string]any{"mfa_secret_enc": sealed}); err != nil {
		return nil, err
	}
	return &MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, actor access.Actor, code string) error {
	user, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return apperr.InvalidState("mfa_already_enabled", "mfa is already enabled")
	}
	if len(user.MFASecretEnc) == 0 {
		return apperr.InvalidState("mfa_not_setup", "mfa setup has not been started")
	}
	ok, err := s.validateTOTP(user, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("code", "is not a valid authenticator code")
	}
	if err := s.store.UpdateUserFields(ctx, user.ID, map[string]any{"mfa_enabled": true}); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "auth.mfa.enabled", "user", user.ID, nil, nil)
	return nil
}

func (s *Service) DisableMFA(ctx context.Context, actor access.Actor, code string) error {
	user, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return apperr.InvalidState("mfa_not_enabled", "mfa is not enabled")
	}
	ok, err := s.validateTOTP(user, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("code", "is not a valid authenticator code")
	}
	if err := s.store.UpdateUserFields(ctx, user.ID, map[string]any{"mfa_enabled": false, "mfa_secret_enc": nil}); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "auth.mfa.disabled", "user", user.ID, nil, nil)
	return nil
}

func (s *Service) validateTOTP(user *User, code string) (bool, error) {
	secret, err := s.sealer.OpenString(user.MFASecretEnc)
	if err != nil {
		return false, err
	}
	return totp.Validate(strings.TrimSpace(code), secret), nil
}
