package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/sehatin/internal/errs"
)

// Tokens issues and verifies HS256 access tokens whose subject is the user id.
type Tokens struct {
	signKey []byte
	ttl     time.Duration
	leeway  time.Duration
	now     func() time.Time
}

// NewTokens constructs a token issuer. signKey must not be empty.
func NewTokens(signKey []byte, ttl time.Duration) (*Tokens, error) {
	if len(signKey) == 0 {
		return nil, errors.New("empty signing key")
	}
	return &Tokens{signKey: signKey, ttl: ttl, leeway: 30 * time.Second, now: time.Now}, nil
}

// Issue creates a signed HS256 JWT for userID.
func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.signKey)
	return signed, exp, err
}

// Subject verifies token and returns its subject. Every failure is errs.ErrUnauthorized.
func (t *Tokens) Subject(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.signKey, nil
	},
		jwt.WithLeeway(t.leeway),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", errs.ErrUnauthorized)
	}
	return claims.Subject, nil
}
