// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisDialTimeout = 5 * time.Second
	redisOpTimeout   = 2 * time.Second
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache is a Redis-backed implementation of Cache. Values round-trip
// through JSON, so callers that need typed data should store strings and
// decode on the way out.
type RedisCache struct {
	client *redis.Client
	logger zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewRedisCache connects to Redis and verifies the connection before
// returning. Failures at runtime degrade to cache misses, never errors.
func NewRedisCache(cfg RedisConfig, logger zerolog.Logger) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to Redis cache")
	return &RedisCache{client: client, logger: logger}, nil
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (c *RedisCache) miss(key, what string, err error) (any, bool) {
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("key", key).Msg(what)
	}
	c.misses.Add(1)
	return nil, false
}

func (c *RedisCache) Get(key string) (any, bool) {
	ctx, cancel := opContext()
	defer cancel()

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return c.miss(key, "redis get failed", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return c.miss(key, "cached value undecodable", err)
	}
	c.hits.Add(1)
	return value, true
}

func (c *RedisCache) Set(key string, value any, ttl time.Duration) {
	ctx, cancel := opContext()
	defer cancel()

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("value not serializable")
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
		return
	}
	c.sets.Add(1)
}

func (c *RedisCache) Delete(key string) {
	ctx, cancel := opContext()
	defer cancel()
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

// Clear flushes the whole database the cache is bound to.
func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis flush failed")
	}
}

func (c *RedisCache) Stats() Stats {
	ctx, cancel := opContext()
	defer cancel()

	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		size = 0
	}
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		CurrentSize: int(size),
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
