// Package cache memoizes Classifier responses so repeated calls with the
// same dimension and payload (common across MediumTermBalancer's per-row
// author/topic/mood checks within a single round) don't re-hit the LLM
// endpoint. A Bloom filter prefilters definitely-absent keys so the common
// miss path skips the Redis round-trip.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a Redis-backed response cache with a Bloom-filter prefilter.
type Cache struct {
	rdb   *redis.Client
	bloom *BloomFilter
	ttl   time.Duration
}

// New connects to addr (empty disables the cache: every Get is a miss and
// every Set is a no-op, so callers can run without Redis configured).
func New(addr string, ttl time.Duration) *Cache {
	c := &Cache{bloom: NewBloomFilter(DefaultBloomConfig()), ttl: ttl}
	if addr != "" {
		c.rdb = redis.NewClient(&redis.Options{Addr: addr})
	}
	return c
}

// Key derives a cache key from a dimension label and an arbitrary payload.
func Key(dimension, payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return dimension + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached value for key, and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}
	if !c.bloom.Contains(key) {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores value under key with the cache's configured TTL.
func (c *Cache) Set(ctx context.Context, key, value string) {
	if c.rdb == nil {
		return
	}
	c.bloom.Add(key)
	c.rdb.Set(ctx, key, value, c.ttl)
}

// Close releases the underlying Redis connection, if any.
func (c *Cache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
