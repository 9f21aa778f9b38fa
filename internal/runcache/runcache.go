// Package runcache caches finished strategy reports in Redis, keyed by
// a digest of the analysis input. Re-running an unchanged input returns
// the cached report instead of spending a full agent sweep.
package runcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/metrics"
	"github.com/meridianlab/listingintel/internal/teams"
)

// Entry is one cached run result.
type Entry struct {
	RunID   string `json:"run_id"`
	Report  string `json:"report"`
	Warning string `json:"warning,omitempty"`
}

// Cache is the Redis-backed report cache.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New wires a cache. ttl <= 0 means entries never expire.
func New(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// DigestInput computes the cache key for one analysis input. Identical
// texts always digest identically; any edit changes the key.
func DigestInput(in teams.Input) string {
	// Struct field order fixes the JSON key order, so the encoding is
	// canonical.
	data, _ := json.Marshal(in)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func key(digest string) string { return "listingintel:report:" + digest }

// Get looks up a cached report. The second return is false on a miss.
func (c *Cache) Get(ctx context.Context, digest string) (*Entry, bool, error) {
	raw, err := c.rdb.Get(ctx, key(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt entry behaves like a miss; the rerun overwrites it.
		c.logger.Warn("Dropping corrupt cache entry",
			zap.String("digest", digest),
			zap.Error(err),
		)
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}
	metrics.CacheHits.Inc()
	return &e, true, nil
}

// Put stores a finished report under the input digest.
func (c *Cache) Put(ctx context.Context, digest string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key(digest), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Invalidate drops the cached report for one digest.
func (c *Cache) Invalidate(ctx context.Context, digest string) error {
	if err := c.rdb.Del(ctx, key(digest)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
