package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
)

type UserService struct {
	repo   ports.UserRepository
	now    func() time.Time
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// CreateUser stores the profile for identity id. The admin flag is true when
// no family reference is supplied or the user created that family, and is
// never recomputed afterwards.
func (s *UserService) CreateUser(ctx context.Context, id string, fields domain.NewUser) (*domain.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	now := s.now()
	user := &domain.User{
		ID:           id,
		Name:         strings.TrimSpace(fields.Name),
		Email:        normalizeEmail(fields.Email),
		ProfileImage: nonEmpty(fields.ProfileImage),
		FamilyID:     nonEmpty(fields.FamilyID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.IsAdmin = user.FamilyID == nil || fields.CreatesFamily

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// GetUserByID returns (nil, nil) when no profile exists.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns (nil, nil) when no profile has the email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrValidation)
		}
		update.Name = &name
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if !validEmail(email) {
			return nil, fmt.Errorf("%w: email is not valid", domain.ErrValidation)
		}
		update.Email = &email
	}

	u, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrEmailInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUsersByFamilyID(ctx context.Context, familyID string) ([]*domain.User, error) {
	users, err := s.repo.ListByFamilyID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	return users, nil
}

// DeleteUser is only used to undo a half-finished registration.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
