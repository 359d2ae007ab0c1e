package users

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
// Timestamps are stored as integer milliseconds since the Unix epoch.
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

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, toMillis(user.CreatedAt)); err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, created_at FROM users
		WHERE email = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, created_at FROM users
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var createdAt int64

	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, email, password_hash, created_at FROM users
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		var item models.User
		var createdAt int64
		if err := rows.Scan(&item.ID, &item.Email, &item.PasswordHash, &createdAt); err != nil {
			return nil, err
		}
		item.CreatedAt = fromMillis(createdAt)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
