package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bridgeit/internal/domain/entity"
	"bridgeit/pkg/logger"
)

const identityKeyPrefix = "identity:"

// RedisIdentityCache shares resolved identities between processes. Entries
// are written with SETNX so the first resolution of a key is the one kept.
type RedisIdentityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// NewRedisIdentityCache keeps entries for ttl, zero keeps them until evicted.
func NewRedisIdentityCache(rdb *redis.Client, ttl time.Duration) *RedisIdentityCache {
	return &RedisIdentityCache{rdb: rdb, ttl: ttl}
}

func (c *RedisIdentityCache) Get(ctx context.Context, userID string) (entity.Identity, bool) {
	raw, err := c.rdb.Get(ctx, identityKeyPrefix+userID).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("RedisIdentityCache: get %s failed: %v", userID, err)
		}
		return entity.Identity{}, false
	}

	var identity entity.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		logger.Warn("RedisIdentityCache: bad entry for %s: %v", userID, err)
		return entity.Identity{}, false
	}
	return identity, true
}

func (c *RedisIdentityCache) Add(ctx context.Context, userID string, identity entity.Identity) {
	raw, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := c.rdb.SetNX(ctx, identityKeyPrefix+userID, raw, c.ttl).Err(); err != nil {
		logger.Warn("RedisIdentityCache: set %s failed: %v", userID, err)
	}
}
