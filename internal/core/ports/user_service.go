package ports

import (
	"context"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// UserService is the profile record store.
type UserService interface {
	CreateUser(ctx context.Context, id string, fields domain.NewUser) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
	GetUsersByFamilyID(ctx context.Context, familyID string) ([]*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}
