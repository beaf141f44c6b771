package domain

// Signup is the registration payload forwarded to the backend.
type Signup struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// UserProfile is the backend's description of the current user.
type UserProfile struct {
	ID       string
	Username string
	Email    string
	Role     Role
}
