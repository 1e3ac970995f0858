// Package common defines shared constants, sentinel errors and small helpers
// used across the budgetkeeper server. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors. ErrorNotFound doubles as the DoesNotExist kind
	// reported to callers.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidState   = errors.New("invalid state")
	ErrThrottled      = errors.New("too many attempts")
	ErrUnverified     = errors.New("account not verified")

	// Capability token errors. ErrMalformed also covers other undecodable
	// client input such as public keys.
	ErrMalformed      = errors.New("incorrectly formed")
	ErrBadSignature   = errors.New("bad signature")
	ErrReadOnlyAccess = errors.New("read-only access")

	// Encrypted blob errors.
	ErrOutOfDate = errors.New("out of date hash")

	// Auth errors (invalid or malformed session token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
