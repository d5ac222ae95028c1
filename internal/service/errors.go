package service

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmailInUse        = errors.New("email already in use")
	ErrAuthUnavailable   = errors.New("auth provider not configured")
	ErrNotConfigured     = errors.New("credentials secret not configured")
	ErrNoAccountEmail    = errors.New("auth account has no email")
)
