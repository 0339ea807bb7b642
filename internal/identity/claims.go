package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessTokenClaims is the subset of access-token claims the adapter reads.
// The token is issued and signed by the backend; the client only decodes it
// to learn the session's email and expiry, so no signature check happens.
type accessTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func parseAccessClaims(token string) (*accessTokenClaims, error) {
	claims := &accessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// expiresSoon reports whether the token expires within the margin (or has
// no parsable expiry at all, which forces a refresh attempt).
func expiresSoon(token string, now time.Time, margin time.Duration) bool {
	claims, err := parseAccessClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !now.Add(margin).Before(claims.ExpiresAt.Time)
}
