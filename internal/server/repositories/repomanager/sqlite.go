package repomanager

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/authvault/authvault/internal/dbx"
	"github.com/authvault/authvault/internal/server/migrations"
	"github.com/authvault/authvault/internal/server/repositories/refreshtokens"
	"github.com/authvault/authvault/internal/server/repositories/users"
)

// SQLiteRepositoryManager vends SQLite-backed repository implementations.
// It exists mostly for local development and tests, where spinning up a
// PostgreSQL instance is not worth the trouble.
type SQLiteRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewSQLiteRepository(db)
}

// RunMigrations sets up goose with the embedded migrations and runs the
// SQLite variants against the provided database connection.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("sqlite3")
	if err := gooseUpContext(ctx, db, "sqlite"); err != nil {
		return err
	}
	return nil
}

// NewSQLiteRepositoryManager constructs a SQLite-backed RepositoryManager.
func NewSQLiteRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &SQLiteRepositoryManager{}, nil
}
