package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken means the token is not a JWT and cannot be inspected locally.
var ErrOpaqueToken = errors.New("opaque token")

// Claims decodes the payload of a JWT without verifying its signature; the
// client never holds the signing key, so this is for display only.
func Claims(token string) (jwt.MapClaims, error) {
	token = stripBearer(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrOpaqueToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrOpaqueToken, err)
	}
	return claims, nil
}

func tokenExpiry(token string) *time.Time {
	claims, err := Claims(token)
	if err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
