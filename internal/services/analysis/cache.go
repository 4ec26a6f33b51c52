package analysis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"chiron/internal/adapters/redis"
	"chiron/internal/domain/technical"
	"chiron/internal/metrics"
	"chiron/pkg/errors"
	"chiron/pkg/logger"
)

const bundleKeyPrefix = "technical:bundle:"

// BundleCache is the redis fast path in front of the bundle store. It is
// never authoritative: postgres decides freshness and the at-most-one-active
// invariant; the cache only short-circuits reads and is dropped on any doubt.
type BundleCache struct {
	enabled bool
	client  *redis.Client
	log     *logger.Logger
}

// NewBundleCache creates the cache. A nil client or enabled=false makes
// every operation a no-op, which keeps callers branch-free.
func NewBundleCache(client *redis.Client, enabled bool) *BundleCache {
	return &BundleCache{
		enabled: enabled && client != nil,
		client:  client,
		log:     logger.Get().With("component", "bundle_cache"),
	}
}

func bundleKey(instrumentID string) string {
	return fmt.Sprintf("%s%s", bundleKeyPrefix, instrumentID)
}

// Get returns the cached active bundle, or nil on a miss. A cached bundle
// past its expiry is evicted and treated as a miss.
func (c *BundleCache) Get(ctx context.Context, instrumentID string) *technical.Bundle {
	if !c.enabled {
		return nil
	}

	var bundle technical.Bundle
	err := c.client.Get(ctx, bundleKey(instrumentID), &bundle)
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warnf("bundle cache read failed for %s: %v", instrumentID, err)
		}
		metrics.BundleCacheMisses.WithLabelValues("redis").Inc()
		return nil
	}

	if !bundle.Fresh(time.Now().UTC()) {
		c.Invalidate(ctx, instrumentID)
		metrics.BundleCacheMisses.WithLabelValues("redis").Inc()
		return nil
	}

	metrics.BundleCacheHits.WithLabelValues("redis").Inc()
	return &bundle
}

// Set stores the bundle until its own expiry. Failures are logged and
// swallowed; the authoritative copy already lives in postgres.
func (c *BundleCache) Set(ctx context.Context, bundle *technical.Bundle) {
	if !c.enabled || bundle == nil {
		return
	}

	ttl := time.Until(bundle.ExpiresAt)
	if ttl <= 0 {
		return
	}

	if err := c.client.Set(ctx, bundleKey(bundle.InstrumentID), bundle, ttl); err != nil {
		c.log.Warnf("bundle cache write failed for %s: %v", bundle.InstrumentID, err)
	}
}

// Invalidate drops the cached bundle for the instrument.
func (c *BundleCache) Invalidate(ctx context.Context, instrumentID string) {
	if !c.enabled {
		return
	}
	if err := c.client.Delete(ctx, bundleKey(instrumentID)); err != nil {
		c.log.Warnf("bundle cache invalidation failed for %s: %v", instrumentID, err)
	}
}
