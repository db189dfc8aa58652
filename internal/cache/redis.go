package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/utils"
)

// Cache memoizes expensive external lookups (directory users, slack handles)
// in redis. A cache failure is never fatal: Remember falls through to the
// loader and only logs the miss.
type Cache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func() (interface{}, error)) error
	Forget(ctx context.Context, key string) error
	Close() error
}

type redisCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisCache(log *logger.Logger) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "localhost:6379", log))

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisCache{log: log.With("service", "RedisCache"), rdb: rdb}, nil
}

func (c *redisCache) Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func() (interface{}, error)) error {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		if uErr := json.Unmarshal(raw, dest); uErr == nil {
			return nil
		}
		// Unreadable entry: drop it and reload.
		_ = c.rdb.Del(ctx, key).Err()
	} else if err != goredis.Nil {
		c.log.Warn("Cache read failed, loading directly", "key", key, "error", err)
	}

	val, err := load()
	if err != nil {
		return err
	}

	encoded, mErr := json.Marshal(val)
	if mErr == nil {
		if sErr := c.rdb.Set(ctx, key, encoded, ttl).Err(); sErr != nil {
			c.log.Warn("Cache write failed", "key", key, "error", sErr)
		}
	}

	// Round-trip through JSON so dest gets a copy regardless of load's
	// concrete type.
	if mErr != nil {
		return mErr
	}
	return json.Unmarshal(encoded, dest)
}

func (c *redisCache) Forget(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *redisCache) Close() error {
	return c.rdb.Close()
}
