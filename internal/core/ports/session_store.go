package ports

import (
	"context"
	"time"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// SessionCache is the best-effort cache of an identity's token and profile.
type SessionCache interface {
	Store(ctx context.Context, identityID, token string, user *domain.User, ttl time.Duration) error
	// CachedUser returns (nil, nil) on a cache miss.
	CachedUser(ctx context.Context, identityID string) (*domain.User, error)
	// Refresh replaces the cached profile of an existing session only.
	Refresh(ctx context.Context, identityID string, user *domain.User) error
	Clear(ctx context.Context, identityID string) error
}

// TokenRevoker tracks invalidated session tokens until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
