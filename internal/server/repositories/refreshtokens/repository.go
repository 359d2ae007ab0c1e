// Package refreshtokens declares the server-side ledger contract for
// refresh tokens in persistent storage.
package refreshtokens

import (
	"context"

	"github.com/authvault/authvault/internal/server/models"
)

// Repository defines operations on the refresh token ledger. Rows are never
// deleted; revocation flips a flag and history is kept for audit.
type Repository interface {
	// Create stores a new ledger row. The token hash must be unique;
	// implementations return common.ErrDuplicateToken on a collision.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindByHash looks up a ledger row by token fingerprint and returns its
	// metadata, or common.ErrorNotFound when the hash is absent.
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Revoke marks the row revoked. Revoking an already revoked or missing
	// row is not an error.
	Revoke(ctx context.Context, id string) error

	// RevokeIfActive marks the row revoked only when it is still active and
	// reports whether this call performed the transition. A false result
	// means a concurrent caller revoked it first (or it never existed).
	RevokeIfActive(ctx context.Context, id string) (bool, error)

	// RevokeAllForUser revokes every active token of a user and returns the
	// number of rows affected.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// List returns the full ledger, newest first.
	List(ctx context.Context) ([]*models.RefreshToken, error)
}
