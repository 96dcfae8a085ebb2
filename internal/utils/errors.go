package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrForbidden          = errors.New("FORBIDDEN")
	ErrRateLimited        = errors.New("RATE_LIMITED")
	ErrCaptchaRequired    = errors.New("CAPTCHA_REQUIRED")
	ErrCaptchaFailed      = errors.New("CAPTCHA_FAILED")
	ErrEmailNotConfigured = errors.New("EMAIL_NOT_CONFIGURED")
	ErrEmailFailed        = errors.New("EMAIL_FAILED")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrChallengeRequired  = errors.New("CHALLENGE_REQUIRED")
	ErrUserNotFound       = errors.New("USER_NOT_FOUND")
	ErrUserExists         = errors.New("USER_EXISTS")
	ErrGroupNotFound      = errors.New("GROUP_NOT_FOUND")
	ErrGroupExists        = errors.New("GROUP_EXISTS")
	ErrInvalidInput       = errors.New("INVALID_INPUT")
)
