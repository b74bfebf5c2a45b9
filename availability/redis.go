package availability

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentmap/agentmap-core/log"
)

// RedisCache is an alternate availability cache backend for deployments
// that run more than one AgentMap process against a shared cache — a
// single-host JSON file can't be the source of truth once two processes
// write it concurrently. Semantics match Cache: Get/Set satisfy
// registry.AvailabilityCache, and entries expire on their own rather than
// being swept by a reconciliation pass.
type RedisCache struct {
	client  *redis.Client
	log     log.Logger
	prefix  string
	ttl     time.Duration
	ctxFunc func() (context.Context, context.CancelFunc)
}

// NewRedisCache wraps an existing *redis.Client. keyPrefix namespaces all
// keys this cache writes (so several AgentMap deployments can share one
// Redis instance); ttl is the expiry applied to every entry, and zero
// disables expiry.
func NewRedisCache(client *redis.Client, keyPrefix string, ttl time.Duration, logger log.Logger) *RedisCache {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &RedisCache{
		client: client,
		log:    logger,
		prefix: keyPrefix,
		ttl:    ttl,
		ctxFunc: func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 5*time.Second)
		},
	}
}

func (r *RedisCache) redisKey(category, key string) string {
	return r.prefix + ":" + category + ":" + key
}

// Get satisfies registry.AvailabilityCache.
func (r *RedisCache) Get(category, key string) (any, bool) {
	ctx, cancel := r.ctxFunc()
	defer cancel()

	raw, err := r.client.Get(ctx, r.redisKey(category, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("availability: redis get %s/%s: %v", category, key, err)
		}
		return nil, false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		r.log.Warn("availability: redis unmarshal %s/%s: %v", category, key, err)
		return nil, false
	}
	return v, true
}

// Set satisfies registry.AvailabilityCache.
func (r *RedisCache) Set(category, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.log.Warn("availability: redis marshal %s/%s: %v", category, key, err)
		return
	}

	ctx, cancel := r.ctxFunc()
	defer cancel()

	if err := r.client.Set(ctx, r.redisKey(category, key), raw, r.ttl).Err(); err != nil {
		r.log.Warn("availability: redis set %s/%s: %v", category, key, err)
	}
}

// Invalidate removes a single key, a whole category, or (category == "")
// every key under this cache's prefix.
func (r *RedisCache) Invalidate(category, key string) {
	ctx, cancel := r.ctxFunc()
	defer cancel()

	var pattern string
	switch {
	case category == "":
		pattern = r.prefix + ":*"
	case key == "":
		pattern = r.prefix + ":" + category + ":*"
	default:
		r.client.Del(ctx, r.redisKey(category, key))
		return
	}

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.log.Warn("availability: redis scan %s: %v", pattern, err)
		return
	}
	if len(keys) > 0 {
		r.client.Del(ctx, keys...)
	}
}
