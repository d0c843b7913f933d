package domain

import "errors"

// Error taxonomy for the credential exchange and guard pipeline.
//
// ErrBackendUnavailable marks transient failures (no response, 5xx): the
// session must be preserved and the navigation denied once. Every other
// sentinel is a definitive backend verdict.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidRegistration = errors.New("invalid registration data")
	ErrTokenRejected       = errors.New("access token rejected")
	ErrRefreshRejected     = errors.New("refresh token rejected")
	ErrBackendUnavailable  = errors.New("auth backend unavailable")
)
