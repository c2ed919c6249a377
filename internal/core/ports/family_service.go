package ports

import (
	"context"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// FamilyService is the family record store plus membership operations.
type FamilyService interface {
	CreateFamily(ctx context.Context, creatorID, name string) (*domain.Family, error)
	GetFamilyByID(ctx context.Context, id string) (*domain.Family, error)
	GetFamilyByInviteCode(ctx context.Context, code string) (*domain.Family, error)
	UpdateFamily(ctx context.Context, id string, update domain.FamilyUpdate) (*domain.Family, error)
	DeleteFamily(ctx context.Context, id string) error
	JoinFamily(ctx context.Context, userID, code string) (*domain.User, *domain.Family, error)
}
