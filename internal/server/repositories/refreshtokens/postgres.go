// Package refreshtokens provides the storage backends for the refresh token
// ledger used in the server's authentication flow.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/authvault/authvault/internal/common"
	"github.com/authvault/authvault/internal/dbx"
	"github.com/authvault/authvault/internal/server/models"
)

// PostgresRepository implements the ledger over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new ledger row.
func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.Revoked, token.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return common.ErrDuplicateToken
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByHash returns the ledger row for the given token fingerprint.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	token := &models.RefreshToken{}
	if err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.Revoked, &token.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

// Revoke marks a ledger row revoked regardless of its current state.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RevokeIfActive flips revoked from false to true and reports whether this
// call won the transition. The WHERE clause makes the flip atomic, so two
// concurrent rotations of the same token can never both succeed.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE id = $1 AND revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// RevokeAllForUser revokes every active token of a user.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE user_id = $1 AND revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// List returns the full ledger, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select refresh tokens: %w", err)
	}
	defer rows.Close()

	var result []*models.RefreshToken
	for rows.Next() {
		var item models.RefreshToken
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.TokenHash, &item.ExpiresAt, &item.Revoked, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
