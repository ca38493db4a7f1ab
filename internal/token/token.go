// Package token issues and verifies the signed credential that proves a
// user's identity between requests. The payload carries only the subject id
// and the standard time claims; roles and permissions never ride in the
// token.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify for every failure mode: bad
// signature, unparsable payload, or elapsed expiry. Callers are not told
// which one occurred.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the standard registered claims plus the subject user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Codec signs and verifies credentials with a single process-wide secret.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// New returns a Codec signing with secret and embedding an expiry ttl from
// issue time.
func New(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl}
}

// Issue mints an HS256 token asserting userID, valid for the configured ttl.
func (c *Codec) Issue(userID string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		UserID: userID,
	})
	return t.SignedString(c.secret)
}

// Verify parses and validates tokenString and returns the asserted user id.
// Any failure yields ErrInvalidToken.
func (c *Codec) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
