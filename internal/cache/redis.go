package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/voltbridge/voltbridge/internal/config"
	"github.com/voltbridge/voltbridge/internal/logger"
	redisclient "github.com/voltbridge/voltbridge/internal/redis"
	"github.com/redis/go-redis/v9"
)

// scanCount bounds how many keys SCAN visits per iteration.
const scanCount = 100

// RedisCache implements Cache over Redis. Values are stored as JSON strings;
// readers convert back through UnmarshalCacheValue.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
	ttl    time.Duration
}

func NewRedisCache(client *redisclient.Client, cfg *config.Configuration, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client.GetClient(), log: log, ttl: cfg.Cache.TTL}
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warnw("redis get failed", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warnw("failed to serialize cache value", "key", key, "error", err)
		return
	}
	if expiration <= 0 {
		expiration = c.ttl
	}
	if err := c.client.Set(ctx, key, string(data), expiration).Err(); err != nil {
		c.log.Warnw("redis set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warnw("redis delete failed", "key", key, "error", err)
	}
}

func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			c.log.Warnw("redis scan failed", "prefix", prefix, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.log.Warnw("redis bulk delete failed", "prefix", prefix, "error", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
