package repomanager

import (
	"context"
	"database/sql"

	"github.com/authvault/authvault/internal/dbx"
	"github.com/authvault/authvault/internal/server/repositories/refreshtokens"
	"github.com/authvault/authvault/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
