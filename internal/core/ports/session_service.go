package ports

import (
	"context"
	"time"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// RegisterInput carries registration data. FamilyName and FamilyCode are
// mutually exclusive; when both are empty the profile has no family.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	ProfileImage    string
	FamilyName      string
	FamilyCode      string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
	Family    *domain.Family
	Status    domain.SessionStatus
}

// LogoutInput identifies the session to end.
type LogoutInput struct {
	IdentityID string
	TokenID    string
	ExpiresAt  time.Time
}

// SessionService coordinates authentication with profile and family records.
type SessionService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Logout(ctx context.Context, in LogoutInput) error
	CurrentSession(ctx context.Context, identityID string) (*domain.User, error)
	// ProfileChanged refreshes the cached profile and notifies observers.
	ProfileChanged(ctx context.Context, user *domain.User)
}
