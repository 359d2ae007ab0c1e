// Package common defines shared constants and sentinel errors used across
// the AuthVault server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrDuplicateToken = errors.New("refresh token already stored")

	// Service-level errors (generic/internal flow control).
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("validation failed")

	// Token lifecycle errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrWrongTokenType = errors.New("wrong token type")

	// Credential hashing errors (stored hash is not a valid bcrypt string).
	ErrInvalidHashFormat = errors.New("invalid password hash format")
)
