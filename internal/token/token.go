// Package token reads the claims of backend-issued bearer tokens.
package token

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Info is what the console can read from a backend-issued bearer token.
// The signing key stays with the backend, so nothing here is verified.
type Info struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Claims describes the JWT payload issued by the helpdesk backend.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var unverifiedParser = jwt.NewParser()

// Inspect decodes the claims of a JWT without checking its signature.
func Inspect(raw string) (*Info, error) {
	claims := &Claims{}
	if _, _, err := unverifiedParser.ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	info := &Info{Subject: claims.Subject, Role: claims.Role}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Expired reports whether the token carried an exp claim that has passed.
func (i *Info) Expired(now time.Time) bool {
	return i != nil && !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Expired is true only for JWTs whose exp is in the past. Opaque tokens
// are left for the backend to reject.
func Expired(raw string, now time.Time) bool {
	info, err := Inspect(raw)
	if err != nil {
		return false
	}
	return info.Expired(now)
}
