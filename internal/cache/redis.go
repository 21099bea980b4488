package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	BatchListKey    = "batches:list"
	BatchKeyFmt     = "batches:%s"
	DailyKeyFmt     = "daily:%s"
	HistoryKeyFmt   = "history:%s"
	SensorLatestKey = "sensor:latest"
	ReportKeyFmt    = "reports:%s"
)

var client *redis.Client

// Init connects to Redis. The cache degrades gracefully: when Init fails the
// client stays nil and every cache call becomes a miss.
func Init(addr, password string, db int) error {
	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client, nil when the cache is disabled.
func GetClient() *redis.Client {
	return client
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// ============================================
// Auth Cache
// ============================================

// hashCredentials creates a hash of email+password for cache key
func hashCredentials(email, password string) string {
	h := sha256.New()
	h.Write([]byte(email + ":" + password))
	return "auth:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// GetCachedAuth reports whether these exact credentials were recently
// verified, skipping the bcrypt compare on the hot login path.
func GetCachedAuth(ctx context.Context, email, password string) bool {
	if client == nil {
		return false
	}
	return client.Get(ctx, hashCredentials(email, password)).Err() == nil
}

// CacheAuth caches valid credentials for 15 minutes
func CacheAuth(ctx context.Context, email, password string) {
	if client == nil {
		return
	}
	client.Set(ctx, hashCredentials(email, password), 1, 15*time.Minute)
}

// InvalidateAuth removes cached credentials (on password change)
func InvalidateAuth(ctx context.Context, email, password string) {
	if client == nil {
		return
	}
	client.Del(ctx, hashCredentials(email, password))
}

// ============================================
// Entity-Based Cache Invalidators
// ============================================

// InvalidateBatchCaches clears caches touched by a batch mutation.
// Called when: CreateBatch, UpdateBatch, DeleteBatch, backfill writes.
func InvalidateBatchCaches(ctx context.Context, batchID string) {
	InvalidateKeys(ctx,
		BatchListKey,
		fmt.Sprintf(BatchKeyFmt, batchID),
		fmt.Sprintf(DailyKeyFmt, batchID),
		fmt.Sprintf(HistoryKeyFmt, batchID),
	)
	InvalidatePattern(ctx, "reports:*")
}

// InvalidateSensorCaches clears the latest-reading cache.
// Called when: a device pushes a new reading.
func InvalidateSensorCaches(ctx context.Context) {
	InvalidateKeys(ctx, SensorLatestKey)
	InvalidatePattern(ctx, "reports:*")
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
