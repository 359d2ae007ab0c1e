// Package httpapi exposes the authentication core and the upload endpoint
// over HTTP with JSON bodies.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/authvault/authvault/internal/logging"
	"github.com/authvault/authvault/internal/server/models"
	"github.com/authvault/authvault/internal/server/services"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

// authSvc is the slice of the auth service the HTTP layer calls.
type authSvc interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type storageSvc interface {
	Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (*models.UploadResult, error)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	address string
	logger  logging.Logger
	auth    authSvc
	storage storageSvc
	db      pinger
}

func NewServer(a string, l logging.Logger, auth authSvc, storage storageSvc, db pinger) (*Server, error) {
	return &Server{
		address: a,
		logger:  l.With("module", "http_server"),
		auth:    auth,
		storage: storage,
		db:      db,
	}, nil
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(securityHeaders)
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ready", s.handleReady).Methods("GET")

	r.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/auth/refresh", s.handleRefresh).Methods("POST")
	r.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")
	r.HandleFunc("/auth/me", s.withAuth(s.handleWhoAmI)).Methods("GET")

	r.HandleFunc("/upload", s.withAuth(s.handleUpload)).Methods("POST")

	return r
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "error stopping HTTP server", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
