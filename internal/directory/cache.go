package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shareyt/backend/internal/models"
)

// ProfileCache is a read-through cache for resolved public profiles.
type ProfileCache interface {
	Get(ctx context.Context, uid string) (*models.Profile, error)
	Set(ctx context.Context, profile models.Profile) error
	Invalidate(ctx context.Context, uid string) error
}

// RedisProfileCache caches profiles in Redis with a TTL. A cold or
// unreachable cache only costs a database round trip.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProfileCache constructs a profile cache on the provided client.
func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisProfileCache{client: client, ttl: ttl}
}

func profileKey(uid string) string {
	return "profile:" + uid
}

// Get returns the cached profile or (nil, nil) on a miss.
func (c *RedisProfileCache) Get(ctx context.Context, uid string) (*models.Profile, error) {
	raw, err := c.client.Get(ctx, profileKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get profile %s: %w", uid, err)
	}

	var profile models.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("decode cached profile %s: %w", uid, err)
	}

	return &profile, nil
}

// Set stores the profile, refreshing its TTL.
func (c *RedisProfileCache) Set(ctx context.Context, profile models.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", profile.UID, err)
	}

	if err := c.client.Set(ctx, profileKey(profile.UID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set profile %s: %w", profile.UID, err)
	}

	return nil
}

// Invalidate drops the cached profile, e.g. after a profile update.
func (c *RedisProfileCache) Invalidate(ctx context.Context, uid string) error {
	if err := c.client.Del(ctx, profileKey(uid)).Err(); err != nil {
		return fmt.Errorf("cache invalidate profile %s: %w", uid, err)
	}
	return nil
}

var _ ProfileCache = (*RedisProfileCache)(nil)
