package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores effective permission sets per user in Redis with a bounded
// TTL. Stale grants self-heal when the entry expires; revocations that
// cannot wait go through Drop.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("authz:perms:%d", userID)
}

// Get returns the cached permission set, if present.
func (c *Cache) Get(ctx context.Context, userID int64) ([]string, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

// Set stores the permission set under the configured TTL.
func (c *Cache) Set(ctx context.Context, userID int64, perms []string) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(userID), raw, c.ttl).Err()
}

// Drop removes the cached permission set for a user.
func (c *Cache) Drop(ctx context.Context, userID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, cacheKey(userID)).Err()
}
