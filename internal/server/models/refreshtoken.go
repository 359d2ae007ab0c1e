package models

import "time"

// RefreshToken is one row of the refresh token ledger. TokenHash is the
// SHA-256 fingerprint of the signed token; the raw token is never stored.
// Revoked only ever moves from false to true, rows are kept for audit.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
