package errors

import "errors"

var (
	ErrJobNotFound          = errors.New("publishing job not found")
	ErrJobExists            = errors.New("publishing job already exists")
	ErrInvalidPublishInput  = errors.New("invalid publish input")
	ErrUnsupportedPlatform  = errors.New("unsupported platform")
	ErrInvalidContent       = errors.New("content failed platform validation")
	ErrCredentialsNotFound  = errors.New("platform credentials not found")
	ErrCredentialsExpired   = errors.New("platform credentials expired")
	ErrCredentialsRejected  = errors.New("platform rejected credentials")
	ErrScheduleInPast       = errors.New("scheduled time must be in the future")
	ErrExternalPublish      = errors.New("external platform publish failed")
	ErrAdapterNotConfigured = errors.New("platform adapter not configured")
)
