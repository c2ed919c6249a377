package ports

import (
	"context"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// IdentityRepository persists authentication identities.
type IdentityRepository interface {
	// Create stores a new identity. Returns domain.ErrEmailInUse on a duplicate email.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	// FindByEmail returns domain.ErrInvalidCredentials when no identity matches.
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Delete(ctx context.Context, id string) error
}
