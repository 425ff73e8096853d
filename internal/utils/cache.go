package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// AccountCacheTTL is how long an account list stays cached
const AccountCacheTTL = 30 * time.Second

// AccountListCacheKey is the cache key of a user's account list
func AccountListCacheKey(userID int64) string {
	return "account:user:" + Itoa(userID)
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client behaves like an empty cache.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Cache disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// AccountListVersionKey counts the invalidations of a user's account list
func AccountListVersionKey(userID int64) string {
	return AccountListCacheKey(userID) + ":version"
}

// CacheVersion reads the invalidation counter guarding a cached value.
// Read it before loading the value from storage.
func CacheVersion(ctx context.Context, rdb *redis.Client, versionKey string) (int64, error) {
	if rdb == nil {
		return 0, nil // Cache disabled
	}
	v, err := rdb.Get(ctx, versionKey).Int64()
	if err == redis.Nil {
		return 0, nil // Never invalidated
	}
	return v, err
}

// SetCacheIfVersion stores value only while versionKey still holds version.
// It reports false without writing when an invalidation happened meanwhile.
func SetCacheIfVersion(ctx context.Context, rdb *redis.Client, key, versionKey string, version int64, value any, ttl time.Duration) (bool, error) {
	if rdb == nil {
		return false, nil // Cache disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return false, err // Return error if marshaling fails
	}
	stored := false
	err = rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return nil // Invalidated since the read started
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl) // Set value in Redis with TTL
			return nil
		})
		stored = err == nil
		return err
	}, versionKey)
	if err == redis.TxFailedErr {
		return false, nil // Version bumped between WATCH and EXEC
	}
	return stored, err
}

// InvalidateCache bumps versionKey and deletes keys in one transaction
func InvalidateCache(ctx context.Context, rdb *redis.Client, versionKey string, keys ...string) error {
	if rdb == nil {
		return nil // Cache disabled
	}
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey) // Readers holding the old version skip their write
		if len(keys) > 0 {
			pipe.Del(ctx, keys...) // Delete keys from Redis
		}
		return nil
	})
	return err
}
