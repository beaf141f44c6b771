package domain

import "strings"

// Role is the authorization level granted by the backend.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole matches case-insensitively. Unrecognized values return false so callers fail closed.
func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleUser, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// Session is the authenticated identity. Token and Role are always set or cleared together.
type Session struct {
	Token    string `json:"access_token"`
	Role     Role   `json:"role"`
	Username string `json:"username"`
}

// Valid reports whether the record describes a usable login.
func (s *Session) Valid() bool {
	if s == nil || strings.TrimSpace(s.Token) == "" {
		return false
	}
	_, ok := ParseRole(string(s.Role))
	return ok
}

// Credentials is the login form payload.
type Credentials struct {
	Username string
	Password string
}

// AuthResult is the backend's answer to login and signup.
type AuthResult struct {
	AccessToken string
	Role        string
	Username    string
}
