package ports

import (
	"context"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// UserRepository persists profiles. Lookups return (nil, nil) when absent.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update applies only the present fields and stamps updated_at.
	// Returns domain.ErrUserNotFound when the record does not exist.
	Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
	ListByFamilyID(ctx context.Context, familyID string) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error
}
