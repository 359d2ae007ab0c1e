// Package server initializes and runs the main application server.
// It opens the configured storage backend, applies migrations, wires the
// authentication and object-storage services, and starts the HTTP server
// with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/authvault/authvault/internal/logging"
	"github.com/authvault/authvault/internal/server/config"
	"github.com/authvault/authvault/internal/server/httpapi"
	"github.com/authvault/authvault/internal/server/repositories/repomanager"
	"github.com/authvault/authvault/internal/server/services"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	authService    *services.AuthService
	storageService *services.StorageService
}

func NewApp(cfg *config.Config) (*App, error) {

	if cfg.SecretKey == "" {
		return nil, errors.New("config error: secret key is required")
	}

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

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

	ss := services.NewStorageService(cfg, logger)

	return &App{config: cfg, logger: logger, db: db, authService: as, storageService: ss}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewServer(app.config.HTTPAddr, app.logger, app.authService, app.storageService, app.db)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	// The bucket check is best effort: object storage may come up after us,
	// and uploads report their own failures.
	if err := app.storageService.EnsureBucket(ctx); err != nil {
		app.logger.Warn(ctx, "object storage not ready", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
}
