package dto

import "github.com/spec-kit/helpdesk-console/internal/domain"

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest payload for new accounts. Role defaults to user.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SessionResponse describes the signed-in identity and where it lands.
type SessionResponse struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	Redirect string      `json:"redirect"`
}

// ProfileResponse is the current user's profile.
type ProfileResponse struct {
	ID       string      `json:"id,omitempty"`
	Username string      `json:"username"`
	Email    string      `json:"email,omitempty"`
	Role     domain.Role `json:"role"`
}

// NewProfileResponse maps a profile.
func NewProfileResponse(p *domain.UserProfile) ProfileResponse {
	return ProfileResponse{ID: p.ID, Username: p.Username, Email: p.Email, Role: p.Role}
}
