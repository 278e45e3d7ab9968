package dto

import (
	"strings"
	"time"
)

// SessionRequest payload for POST /sessions.
type SessionRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims the email.
func (r *SessionRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// SessionUser is the identity summary returned with a token.
type SessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionResponse is returned on successful login.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
}
