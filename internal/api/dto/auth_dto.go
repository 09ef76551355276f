package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Status    string    `json:"status"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FailureResponse is returned for rejected logins.
type FailureResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SessionResponse describes the caller's validated token.
type SessionResponse struct {
	TokenID string   `json:"jti"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
}
