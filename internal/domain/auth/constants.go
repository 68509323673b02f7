package auth

import "time"

const (
	MaxFailedLogins  = 5
	PasswordResetTTL = time.Hour
	refreshTokenSize = 32
	permissionTTL    = 30 * time.Second
)

const (
	loginSuccess = "success"
	loginFailure = "failure"
	loginLocked  = "locked"
)
