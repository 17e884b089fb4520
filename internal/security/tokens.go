package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL bounds how long a rendered page's buttons stay usable
const DefaultTokenTTL = 12 * time.Hour

const tokenIssuer = "yomiage"

var (
	// ErrInvalidToken is returned for tokens that fail signature or claim checks
	ErrInvalidToken = errors.New("invalid form token")
	// ErrExpiredToken is returned for tokens past their expiry
	ErrExpiredToken = errors.New("form token expired")
)

type formClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// FormTokens issues and verifies HS256 tokens that bind a submitted form to
// the reading session it was rendered for.
type FormTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFormTokens creates a token issuer. An empty secret is replaced with
// random bytes, so tokens do not survive a restart.
func NewFormTokens(secret string) (*FormTokens, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return &FormTokens{secret: key, ttl: DefaultTokenTTL, now: time.Now}, nil
}

// Issue returns a signed token for sessionID
func (f *FormTokens) Issue(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session ID is required")
	}

	now := f.now()
	claims := formClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(f.ttl)),
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(f.secret)
}

// Verify checks token and returns the session id it was issued for
func (f *FormTokens) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	var claims formClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(f.now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return f.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", ErrExpiredToken
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.SessionID == "" {
		return "", ErrInvalidToken
	}

	return claims.SessionID, nil
}
