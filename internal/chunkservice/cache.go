package chunkservice

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgallion1/docscrub/internal/wire"
)

const keyPrefix = "chunk:"

// Cache stores successful chunking responses by content key. Misses and
// backend failures both report false.
type Cache interface {
	Get(ctx context.Context, key string) (*wire.ChunkResponse, bool)
	Set(ctx context.Context, key string, resp *wire.ChunkResponse)
}

// CacheKey identifies a chunking result by content hash and parameters.
func CacheKey(data []byte, format string, chunkSize, overlap int) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s%x:%s:%d:%d", keyPrefix, sum[:16], format, chunkSize, overlap)
}

// RedisCache is a Cache backed by go-redis.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache connects to addr and verifies the connection with a PING.
func NewRedisCache(addr string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedisCache(rdb, ttl, logger), nil
}

func newRedisCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger.With("component", "chunk-cache")}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*wire.ChunkResponse, bool) {
	data, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var resp wire.ChunkResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (c *RedisCache) Set(ctx context.Context, key string, resp *wire.ChunkResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Close closes the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
