package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
)

// IdentityService implements credential storage, token issuance and
// sign-in/sign-out notifications.
type IdentityService struct {
	repo      ports.IdentityRepository
	revoker   ports.TokenRevoker
	events    ports.AuthEventPublisher
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewIdentityService(
	repo ports.IdentityRepository,
	revoker ports.TokenRevoker,
	events ports.AuthEventPublisher,
	jwtSecret string,
	tokenTTL time.Duration,
	logger zerolog.Logger,
) *IdentityService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &IdentityService{
		repo:      repo,
		revoker:   revoker,
		events:    events,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

func (s *IdentityService) CreateIdentity(ctx context.Context, email, password string) (*domain.Identity, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &domain.Identity{
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return created, nil
}

func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return identity, nil
}

func (s *IdentityService) DeleteIdentity(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// IssueToken signs an HS256 token whose subject is the identity id.
func (s *IdentityService) IssueToken(_ context.Context, user *domain.User) (*domain.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	tokenID := uuid.NewString()

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role(),
		"jti":   tokenID,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.Session{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// SignOut revokes the token until it would have expired anyway. The
// sign-out notification is best-effort.
func (s *IdentityService) SignOut(ctx context.Context, identityID, tokenID string, expiresAt time.Time) error {
	if tokenID != "" {
		if err := s.revoker.Revoke(ctx, tokenID, expiresAt); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	if err := s.events.Publish(ctx, domain.AuthEvent{IdentityID: identityID, SignedIn: false, At: s.now()}); err != nil {
		s.logger.Warn().Err(err).Str("identity_id", identityID).Msg("failed to publish sign-out")
	}
	return nil
}

func (s *IdentityService) NotifySignedIn(ctx context.Context, identityID string) error {
	return s.events.Publish(ctx, domain.AuthEvent{IdentityID: identityID, SignedIn: true, At: s.now()})
}
