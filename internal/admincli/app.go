// Package admincli implements the operator command-line tool. It opens the
// configured database directly, so it works against the SQLite dev file and
// the production PostgreSQL instance alike without going through the HTTP
// API.
package admincli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/authvault/authvault/internal/server/config"
	"github.com/authvault/authvault/internal/server/models"
	"github.com/authvault/authvault/internal/server/repositories/repomanager"
	"github.com/authvault/authvault/internal/server/services"
)

// authService is the slice of the auth service the commands use.
type authService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListTokens(ctx context.Context) ([]*models.RefreshToken, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

type App struct {
	config *config.Config
	db     *sql.DB
	auth   authService
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *config.Config) (*App, error) {

	db, m, err := repomanager.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := m.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	as, err := services.NewAuthService(db, m, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("auth service init error: %w", err)
	}

	return &App{config: cfg, db: db, auth: as, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

const usage = `Usage: authvault-cli [flags] <command>

Commands:
  register              create an account (interactive password prompt)
  users                 list registered accounts
  tokens                list the refresh-token ledger
  revoke-all <user-id>  revoke every refresh token of one user
  secret                generate a random signing secret

Flags are shared with the server, e.g. -d sqlite://dev.db selects the store.`

// Run dispatches one command. args are the positional arguments with the
// shared server flags already stripped.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "register":
		return a.Register(ctx)
	case "users":
		return a.ListUsers(ctx)
	case "tokens":
		return a.ListTokens(ctx)
	case "revoke-all":
		if len(args) < 2 {
			return errors.New("revoke-all needs a user id")
		}
		return a.RevokeAll(ctx, args[1])
	case "secret":
		return a.Secret()
	default:
		fmt.Fprintln(a.out, usage)
		return fmt.Errorf("unknown command: %q", args[0])
	}
}
