package domain

import "time"

// Identity is the authentication record a profile is attached to.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is an issued bearer token.
type Session struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}
