package domain

import "errors"

// Store signals.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// Transport and processor failures.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrForbidden        = errors.New("access forbidden")
	ErrProcessorTimeout = errors.New("command processor did not reply in time")
	ErrProcessorStopped = errors.New("command processor stopped")
)
