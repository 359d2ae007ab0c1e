// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, credential verification, the
// refresh token rotation flow and session resolution for the HTTP layer.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authvault/authvault/internal/common"
	"github.com/authvault/authvault/internal/dbx"
	"github.com/authvault/authvault/internal/server/auth"
	"github.com/authvault/authvault/internal/server/config"
	"github.com/authvault/authvault/internal/server/models"
	"github.com/authvault/authvault/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// ExpiresIn is the access token validity in seconds, as reported to clients.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// AuthService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - Refresh: rotate refresh tokens and mint new access tokens
// - Logout: revoke refresh tokens
// - Authenticate: resolve an access token to its user
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       *auth.PasswordHasher
	codec                        *auth.TokenCodec
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	// dummyHash is burned on login attempts against unknown emails, so the
	// response time does not reveal whether an account exists.
	dummyHash string
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) (*AuthService, error) {
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("error preparing dummy hash: %v", err)
	}
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		codec:                        auth.NewTokenCodec([]byte(cfg.SecretKey)),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		dummyHash:                    dummyHash,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", common.ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", common.ErrValidation)
	}
	return nil
}

// Register creates a new user with the given email and password. The email is
// lowercased and trimmed before storage; an address that is already registered
// yields common.ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating user: %v", err)
	}
	return u, nil
}

// Login verifies the provided password against the stored bcrypt hash and,
// on success, returns a new TokenPair. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return s.issueTokenPair(ctx, user.ID, s.db)
}

// Refresh validates a refresh token against the codec and the ledger, rotates
// it transactionally, and returns a fresh TokenPair. The old token is revoked
// and the successor recorded in one transaction; of two concurrent calls with
// the same token exactly one wins, the other gets common.ErrTokenRevoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil, common.ErrWrongTokenType
	}

	repo := s.repomanager.RefreshTokens(s.db)
	row, err := repo.FindByHash(ctx, auth.Fingerprint(refreshToken))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %v", err)
	}
	if row.Revoked {
		return nil, common.ErrTokenRevoked
	}
	if row.ExpiresAt.Before(time.Now()) {
		return nil, common.ErrTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		won, err := s.repomanager.RefreshTokens(tx).RevokeIfActive(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("error revoking refresh token: %v", err)
		}
		if !won {
			return common.ErrTokenRevoked
		}
		var genErr error
		pair, genErr = s.issueTokenPair(ctx, row.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the ledger row behind a refresh token. The token is not
// verified first: even an expired token should still flip its row, and an
// arbitrary string simply matches nothing. The operation is safe to repeat
// and never confirms whether a token was valid.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	repo := s.repomanager.RefreshTokens(s.db)
	row, err := repo.FindByHash(ctx, auth.Fingerprint(refreshToken))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error searching refresh token: %v", err)
	}

	if err := repo.Revoke(ctx, row.ID); err != nil {
		return fmt.Errorf("error revoking refresh token: %v", err)
	}
	return nil
}

// Authenticate resolves an access token to its user. Refresh tokens are
// rejected with common.ErrWrongTokenType; a token whose user no longer exists
// yields common.ErrorUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return nil, common.ErrWrongTokenType
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// ListUsers returns all registered users, for the admin CLI.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

// ListTokens returns the full refresh token ledger, for the admin CLI.
func (s *AuthService) ListTokens(ctx context.Context) ([]*models.RefreshToken, error) {
	return s.repomanager.RefreshTokens(s.db).List(ctx)
}

// RevokeAllForUser revokes every active refresh token of a user and reports
// how many rows were flipped.
func (s *AuthService) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).RevokeAllForUser(ctx, userID)
}

func (s *AuthService) issueTokenPair(ctx context.Context, userID string, db dbx.DBTX) (*TokenPair, error) {
	accessToken, err := s.codec.Issue(userID, auth.TokenTypeAccess, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshToken, err := s.codec.Issue(userID, auth.TokenTypeRefresh, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	now := time.Now().UTC()
	row := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: auth.Fingerprint(refreshToken),
		ExpiresAt: now.Add(s.refreshTokenValidityDuration),
		CreatedAt: now,
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, row); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTokenValidityDuration.Seconds()),
	}, nil
}
