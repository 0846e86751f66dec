package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// nowFn is a test seam for the wall clock.
var nowFn = time.Now

// expiresAt decodes the token's exp claim without verifying the signature:
// the client holds no signing key and only needs the expiry for scheduling.
// ok is false when the token or the claim cannot be decoded.
func expiresAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsExpired reports whether the token's expiry lies in the past. A token
// whose expiry cannot be decoded counts as expired, forcing
// re-authentication instead of granting access on malformed data.
func IsExpired(token string) bool {
	exp, ok := expiresAt(token)
	if !ok {
		return true
	}
	return exp.Before(nowFn())
}

// ExpiresWithin reports whether the token expires less than window from now.
// An undecodable expiry counts as expiring.
func ExpiresWithin(token string, window time.Duration) bool {
	exp, ok := expiresAt(token)
	if !ok {
		return true
	}
	return exp.Before(nowFn().Add(window))
}
