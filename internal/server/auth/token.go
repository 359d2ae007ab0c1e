package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authvault/authvault/internal/common"
)

// TokenType distinguishes short-lived access tokens from long-lived refresh
// tokens. The type is embedded in the claims so one kind can never be
// presented where the other is expected.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims carried in every signed token. Subject holds the user ID.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"type"`
}

// TokenCodec signs and verifies JWTs with a single HMAC-SHA256 secret.
type TokenCodec struct {
	secretKey []byte
}

func NewTokenCodec(secretKey []byte) *TokenCodec {
	return &TokenCodec{secretKey: secretKey}
}

// Issue signs a token for userID with the given type and validity window.
// The issued-at and expiry claims are both set from the same clock reading,
// so exp-iat always equals validityDuration.
func (c *TokenCodec) Issue(userID string, tokenType TokenType, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		TokenType: tokenType,
	})

	tokenString, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks the signature and registered claims of tokenString and
// returns the embedded claims. Only HS256 signatures are accepted. Expired
// tokens map to common.ErrTokenExpired; every other defect (bad signature,
// unexpected algorithm, missing expiry, garbage input) maps to
// common.ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// Fingerprint returns the SHA-256 hex digest of a signed token. The refresh
// token ledger stores fingerprints, never raw tokens, so a leaked database
// dump cannot be replayed.
func Fingerprint(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}
