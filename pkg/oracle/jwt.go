package oracle

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MintBearerToken signs a short-lived HS256 bearer token for authenticating
// to the oracle endpoint, used when the configured credential is a signed
// token rather than a static API key.
func MintBearerToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}
