package ports

import (
	"context"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// FamilyRepository persists families. Lookups return (nil, nil) when absent.
type FamilyRepository interface {
	// Create inserts the family and assigns its ID.
	// Returns domain.ErrDuplicateInviteCode when the invite code is taken.
	Create(ctx context.Context, family *domain.Family) (*domain.Family, error)
	FindByID(ctx context.Context, id string) (*domain.Family, error)
	FindByInviteCode(ctx context.Context, code string) (*domain.Family, error)
	// Update returns domain.ErrFamilyNotFound when the record does not exist.
	Update(ctx context.Context, id string, update domain.FamilyUpdate) (*domain.Family, error)
	Delete(ctx context.Context, id string) error
}
