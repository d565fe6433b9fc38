package driveapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired inspects the bearer token's exp claim without verifying its
// signature. Verification is the server's job; this only exists to fail fast
// with a clear error instead of a 401 mid-push.
func TokenExpired(token string) (bool, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false, err
	}
	if exp == nil {
		// no exp claim, assume long-lived token
		return false, nil
	}

	return time.Now().After(exp.Time), nil
}
