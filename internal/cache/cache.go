package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/voltbridge/voltbridge/internal/config"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/redis"
)

// CacheType selects the cache backend.
type CacheType string

const (
	CacheTypeInMemory CacheType = "inmemory"
	CacheTypeRedis    CacheType = "redis"
)

// Cache is the read-through cache used for hot, slowly changing lookups such
// as resolved tariffs.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
}

// Initialize constructs the cache backend named by the configuration.
func Initialize(cfg *config.Configuration, log *logger.Logger) (Cache, error) {
	switch CacheType(cfg.Cache.Type) {
	case CacheTypeRedis:
		log.Infow("initializing redis cache", "address", cfg.Redis.Address)
		client, err := redis.NewClient(cfg, log)
		if err != nil {
			return nil, err
		}
		return NewRedisCache(client, cfg, log), nil
	default:
		log.Infow("initializing in-memory cache", "ttl", cfg.Cache.TTL)
		return NewInMemoryCache(cfg.Cache.TTL), nil
	}
}

// UnmarshalCacheValue converts a cached value to *T. It handles both the
// in-memory backend, which stores live objects, and the Redis backend, which
// stores JSON strings.
func UnmarshalCacheValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}
	if typed, ok := value.(*T); ok {
		return typed, true
	}
	if typed, ok := value.(T); ok {
		return &typed, true
	}
	if str, ok := value.(string); ok {
		var result T
		if err := json.Unmarshal([]byte(str), &result); err == nil {
			return &result, true
		}
	}
	return nil, false
}
