// Package cache stores intersection results in Redis so repeated queries over
// the same pair skip the computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/resilience"
)

const keyPrefix = "intersect:"

// Backend is the subset of pkg/redis.Client the cache needs. Get reports a
// missing key with an error for which pkgredis.IsNilError is true.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type Options struct {
	TTL time.Duration
	// Namespace separates processes that load the same list names with
	// different replication settings.
	Namespace string
	Metrics   *metrics.Metrics
	Breaker   *resilience.CircuitBreaker
}

// ResultCache is safe for concurrent use.
type ResultCache struct {
	backend Backend
	opts    Options
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, opts Options) *ResultCache {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewCircuitBreaker("result-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
		})
	}
	return &ResultCache{
		backend: backend,
		opts:    opts,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Get returns the cached result for the pair. Backend failures count as
// misses.
func (c *ResultCache) Get(ctx context.Context, a, b, algorithm string) (posting.List, bool) {
	key := c.Key(a, b, algorithm)
	var data []byte
	err := c.opts.Breaker.Execute(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return posting.List{}, false
	}
	if data == nil {
		c.miss()
		return posting.List{}, false
	}
	var list posting.List
	if err := json.Unmarshal(data, &list); err != nil {
		c.logger.Error("cache entry unreadable", "key", key, "error", err)
		c.miss()
		return posting.List{}, false
	}
	c.hit()
	return list, true
}

func (c *ResultCache) Set(ctx context.Context, a, b, algorithm string, list posting.List) {
	key := c.Key(a, b, algorithm)
	data, err := json.Marshal(list)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.opts.Breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.opts.TTL)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs compute once per key, no
// matter how many callers ask concurrently. The bool reports a cache hit.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	a, b, algorithm string,
	compute func() (posting.List, error),
) (posting.List, bool, error) {
	if list, ok := c.Get(ctx, a, b, algorithm); ok {
		return list, true, nil
	}
	v, err, _ := c.group.Do(c.Key(a, b, algorithm), func() (any, error) {
		list, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, a, b, algorithm, list)
		return list, nil
	})
	if err != nil {
		return posting.List{}, false, err
	}
	return v.(posting.List), false, nil
}

// Invalidate drops every cached intersection.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func (c *ResultCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Key hashes the namespace, both list names and the algorithm.
func (c *ResultCache) Key(a, b, algorithm string) string {
	sum := sha256.Sum256([]byte(c.opts.Namespace + "|" + a + "|" + b + "|" + algorithm))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

func (c *ResultCache) hit() {
	c.hits.Add(1)
	if c.opts.Metrics != nil {
		c.opts.Metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResultCache) miss() {
	c.misses.Add(1)
	if c.opts.Metrics != nil {
		c.opts.Metrics.CacheMissesTotal.Inc()
	}
}
