package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// SessionCache keeps the latest token and profile of each signed-in identity.
// Keys: family_circle_token:<id> and family_circle_user:<id>.
type SessionCache struct {
	client *redis.Client
}

func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

func (c *SessionCache) Store(ctx context.Context, identityID, token string, user *domain.User, ttl time.Duration) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode cached user: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(identityID), token, ttl)
		pipe.Set(ctx, userKey(identityID), payload, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache session: %w", err)
	}
	return nil
}

// CachedUser returns (nil, nil) when nothing is cached for identityID.
func (c *SessionCache) CachedUser(ctx context.Context, identityID string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, userKey(identityID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cached user: %w", err)
	}
	return decodeUser(raw)
}

// Refresh overwrites the cached profile, keeping its TTL. Nothing is written
// when no session is cached.
func (c *SessionCache) Refresh(ctx context.Context, identityID string, user *domain.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode cached user: %w", err)
	}
	err = c.client.SetArgs(ctx, userKey(identityID), payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("refresh cached user: %w", err)
	}
	return nil
}

func decodeUser(raw []byte) (*domain.User, error) {
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	return &u, nil
}

func (c *SessionCache) Clear(ctx context.Context, identityID string) error {
	if err := c.client.Del(ctx, tokenKey(identityID), userKey(identityID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
