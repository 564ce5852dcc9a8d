// Package cache stores comparison results in Redis, keyed by a hash of
// the request. Concurrent requests for the same key are deduplicated with
// singleflight, and a circuit breaker keeps a failing Redis from slowing
// every comparison down.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/TaokyleYT/wapds/internal/analyzer/comparer"
	"github.com/TaokyleYT/wapds/pkg/config"
	pkgredis "github.com/TaokyleYT/wapds/pkg/redis"
	"github.com/TaokyleYT/wapds/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "compare:"

type ComparisonCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *ComparisonCache {
	return &ComparisonCache{
		client:  client,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("comparison-cache", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "comparison-cache"),
	}
}

func (c *ComparisonCache) Get(ctx context.Context, req comparer.Request) (*comparer.Result, bool) {
	key := buildKey(req)
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			// A miss is not a Redis failure.
			return nil
		}
		return err
	})
	if err != nil || data == "" {
		if err != nil {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result comparer.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

func (c *ComparisonCache) Set(ctx context.Context, req comparer.Request, result *comparer.Result) {
	key := buildKey(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for req, or runs computeFn once
// even under concurrent identical requests. The bool reports a cache hit.
func (c *ComparisonCache) GetOrCompute(
	ctx context.Context,
	req comparer.Request,
	computeFn func() (*comparer.Result, error),
) (*comparer.Result, bool, error) {
	if result, ok := c.Get(ctx, req); ok {
		return result, true, nil
	}
	key := buildKey(req)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, req); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*comparer.Result), false, nil
}

// Invalidate drops every cached comparison. Called after a replacement
// creates a new document, since derived documents may shift rankings.
func (c *ComparisonCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating comparison cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *ComparisonCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState exposes the circuit state for metrics and health reporting.
func (c *ComparisonCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

// buildKey hashes the canonical form of the request. Reference order is
// part of the key because it decides tie ordering in the cosine ranking.
func buildKey(req comparer.Request) string {
	refs := make([]string, len(req.ReferenceIDs))
	for i, id := range req.ReferenceIDs {
		refs[i] = strconv.FormatInt(id, 10)
	}
	normalized := "default"
	if req.Normalized != nil {
		normalized = strconv.FormatBool(*req.Normalized)
	}
	raw := fmt.Sprintf("%d|%s|%s|%s", req.QueryID, strings.Join(refs, ","), req.Method, normalized)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
