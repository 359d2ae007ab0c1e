package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/authvault/authvault/internal/common"
	"github.com/authvault/authvault/internal/dbx"
	"github.com/authvault/authvault/internal/server/models"
)

// SQLiteRepository mirrors PostgresRepository for the embedded backend.
// Timestamps are stored as integer milliseconds since the Unix epoch and
// revoked as 0/1.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func (r *SQLiteRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.TokenHash,
		toMillis(token.ExpiresAt), token.Revoked, toMillis(token.CreatedAt)); err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateToken
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = ?
	`
	token := &models.RefreshToken{}
	var expiresAt, createdAt int64
	if err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &expiresAt, &token.Revoked, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	token.ExpiresAt = fromMillis(expiresAt)
	token.CreatedAt = fromMillis(createdAt)
	return token, nil
}

func (r *SQLiteRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens SET revoked = 1
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RevokeIfActive(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE refresh_tokens SET revoked = 1
		WHERE id = ? AND revoked = 0
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

func (r *SQLiteRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens SET revoked = 1
		WHERE user_id = ? AND revoked = 0
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

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.RefreshToken, error) {
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
		var expiresAt, createdAt int64
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.TokenHash, &expiresAt, &item.Revoked, &createdAt,
		); err != nil {
			return nil, err
		}
		item.ExpiresAt = fromMillis(expiresAt)
		item.CreatedAt = fromMillis(createdAt)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
