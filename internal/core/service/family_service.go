package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
	"github.com/familycircle/circle-api/internal/pkg/metrics"
)

const defaultInviteAttempts = 5

type FamilyService struct {
	repo        ports.FamilyRepository
	users       ports.UserRepository
	newCode     func() (string, error)
	maxAttempts int
	now         func() time.Time
	logger      zerolog.Logger
}

func NewFamilyService(repo ports.FamilyRepository, users ports.UserRepository, maxAttempts int, logger zerolog.Logger) *FamilyService {
	if maxAttempts <= 0 {
		maxAttempts = defaultInviteAttempts
	}
	return &FamilyService{
		repo:        repo,
		users:       users,
		newCode:     domain.NewInviteCode,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// CreateFamily stores a new family owned by creatorID. A fresh invite code is
// drawn whenever the unique index reports a collision.
func (s *FamilyService) CreateFamily(ctx context.Context, creatorID, name string) (*domain.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: family name is required", domain.ErrValidation)
	}
	if creatorID == "" {
		return nil, fmt.Errorf("%w: creator is required", domain.ErrValidation)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("create family: invite code: %w", err)
		}

		now := s.now()
		created, err := s.repo.Create(ctx, &domain.Family{
			Name:       name,
			InviteCode: code,
			CreatedBy:  creatorID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if errors.Is(err, domain.ErrDuplicateInviteCode) {
			metrics.InviteCodeCollisionsTotal.Inc()
			s.logger.Warn().Int("attempt", attempt).Msg("invite code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create family: %w", err)
		}

		metrics.FamiliesCreatedTotal.Inc()
		s.logger.Info().Str("family_id", created.ID).Str("created_by", creatorID).Msg("family created")
		return created, nil
	}

	return nil, domain.ErrInviteCodeExhausted
}

// GetFamilyByID returns (nil, nil) when no family has the given id.
func (s *FamilyService) GetFamilyByID(ctx context.Context, id string) (*domain.Family, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

// GetFamilyByInviteCode returns (nil, nil) when the code matches no family.
// Malformed codes are treated as absent without touching the store.
func (s *FamilyService) GetFamilyByInviteCode(ctx context.Context, code string) (*domain.Family, error) {
	code = domain.NormalizeInviteCode(code)
	if !domain.IsInviteCode(code) {
		return nil, nil
	}
	f, err := s.repo.FindByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get family by invite code: %w", err)
	}
	return f, nil
}

func (s *FamilyService) UpdateFamily(ctx context.Context, id string, update domain.FamilyUpdate) (*domain.Family, error) {
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: family name cannot be empty", domain.ErrValidation)
		}
		update.Name = &trimmed
	}

	f, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, domain.ErrFamilyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update family: %w", err)
	}
	return f, nil
}

// DeleteFamily removes the record only; member profiles keep their reference.
func (s *FamilyService) DeleteFamily(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	return nil
}

// JoinFamily attaches an existing profile to the family owning code.
// The admin flag is left as it was computed at registration.
func (s *FamilyService) JoinFamily(ctx context.Context, userID, code string) (*domain.User, *domain.Family, error) {
	family, err := s.GetFamilyByInviteCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if family == nil {
		return nil, nil, domain.ErrInvalidInviteCode
	}

	familyID := family.ID
	user, err := s.users.Update(ctx, userID, domain.UserUpdate{FamilyID: &familyID})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("join family: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("family_id", familyID).Msg("user joined family")
	return user, family, nil
}
