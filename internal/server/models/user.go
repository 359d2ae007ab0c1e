// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered identity. Email is stored lowercased and unique;
// PasswordHash is a bcrypt hash, never the raw credential.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
