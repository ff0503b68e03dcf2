// Package cache is an optional read-through cache for day-window queries.
// Entries are namespaced by a generation counter that every committed sync
// bumps. A fill is written under the generation its read observed, so rows
// loaded before a write land in a namespace no later read looks at.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"healthbridge-backend/internal/logging"
	"healthbridge-backend/internal/metrics"
)

// Generation identifies the namespace a lookup was made in.
type Generation int64

type Cache interface {
	// Get decodes a cached value into dest and reports whether it was found,
	// along with the generation the lookup used.
	Get(ctx context.Context, key string, dest any) (Generation, bool)
	// Set stores value under gen, which must come from the preceding Get.
	Set(ctx context.Context, gen Generation, key string, value any)
	// Invalidate drops every entry written before the call.
	Invalidate(ctx context.Context) error
}

const (
	keyPrefix     = "healthbridge:query"
	generationKey = keyPrefix + ":generation"
)

// store is the subset of *redis.Client the cache uses.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type RedisCache struct {
	client store
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return newRedisCache(client, ttl)
}

func newRedisCache(client store, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) generation(ctx context.Context) (Generation, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return Generation(gen), err
}

// noGeneration marks a lookup whose generation could not be read; Set
// ignores it.
const noGeneration Generation = -1

func entryKey(gen Generation, key string) string {
	return fmt.Sprintf("%s:g%d:%s", keyPrefix, gen, key)
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) (Generation, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("cache generation lookup failed")
		metrics.CacheMisses.Inc()
		return noGeneration, false
	}

	data, err := c.client.Get(ctx, entryKey(gen, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		metrics.CacheMisses.Inc()
		return gen, false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		metrics.CacheMisses.Inc()
		return gen, false
	}
	metrics.CacheHits.Inc()
	return gen, true
}

func (c *RedisCache) Set(ctx context.Context, gen Generation, key string, value any) {
	if gen == noGeneration {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, entryKey(gen, key), data, c.ttl).Err(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

// Noop is used when no Redis URL is configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string, dest any) (Generation, bool) { return 0, false }
func (Noop) Set(ctx context.Context, gen Generation, key string, value any)   {}
func (Noop) Invalidate(ctx context.Context) error                             { return nil }

// New returns a Redis-backed cache, or Noop when client is nil.
func New(client *redis.Client, ttl time.Duration) Cache {
	if client == nil {
		return Noop{}
	}
	return NewRedisCache(client, ttl)
}
