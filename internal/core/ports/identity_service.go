package ports

import (
	"context"
	"time"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// IdentityService is the authentication backend the session coordinator drives.
type IdentityService interface {
	CreateIdentity(ctx context.Context, email, password string) (*domain.Identity, error)
	Authenticate(ctx context.Context, email, password string) (*domain.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	IssueToken(ctx context.Context, user *domain.User) (*domain.Session, error)
	// SignOut revokes the token and announces the sign-out.
	SignOut(ctx context.Context, identityID, tokenID string, expiresAt time.Time) error
	// NotifySignedIn announces that identityID has signed in.
	NotifySignedIn(ctx context.Context, identityID string) error
}
