// Package common defines shared constants, helpers and sentinel errors used
// across the TutorHub server and the operator CLI. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrUpstream       = errors.New("upstream failure")

	// Validation errors.
	ErrInvalidInput    = errors.New("invalid input")
	ErrPolicyViolation = errors.New("policy violation")
	ErrBadCredentials  = errors.New("invalid username or password")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
