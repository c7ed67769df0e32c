package congestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "congestion_cache:"

// RedisSnapshot stores each cache entry as a JSON value under a prefixed
// Redis key. A non-zero TTL lets stale entries expire between process
// runs, which the flat-file backend deliberately does not do.
type RedisSnapshot struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSnapshot(client *redis.Client, ttl time.Duration) *RedisSnapshot {
	return &RedisSnapshot{redis: client, ttl: ttl}
}

// Load reads all cache entries currently held in Redis.
func (rs *RedisSnapshot) Load() (map[string]Speeds, error) {
	ctx := context.Background()

	keys, err := rs.redis.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}

	entries := make(map[string]Speeds, len(keys))
	for _, key := range keys {
		data, err := rs.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var s Speeds
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			continue
		}
		entries[key[len(redisKeyPrefix):]] = s
	}
	return entries, nil
}

// Store replaces the persisted table: stale keys are removed, current
// entries written with the configured TTL.
func (rs *RedisSnapshot) Store(entries map[string]Speeds) error {
	ctx := context.Background()

	existing, err := rs.redis.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	for _, key := range existing {
		if _, ok := entries[key[len(redisKeyPrefix):]]; !ok {
			rs.redis.Del(ctx, key)
		}
	}

	for k, s := range entries {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal cache entry: %w", err)
		}
		if err := rs.redis.Set(ctx, redisKeyPrefix+k, data, rs.ttl).Err(); err != nil {
			return fmt.Errorf("failed to store cache entry: %w", err)
		}
	}
	return nil
}
