// Package cache memoizes ranked similarity results in Redis. Concurrent
// misses for the same key are collapsed into one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/vector"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/redis"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs. Get returns
// pkgredis.ErrMiss for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get looks up the ranking of query at limit computed against the snapshot
// named version.
func (c *QueryCache) Get(ctx context.Context, version, query string, limit int) ([]vector.ScoredDoc, bool) {
	key := BuildKey(version, query, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgredis.ErrMiss) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var docs []vector.ScoredDoc
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return docs, true
}

func (c *QueryCache) Set(ctx context.Context, version, query string, limit int, docs []vector.ScoredDoc) {
	key := BuildKey(version, query, limit)
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached ranking for query and limit, computing
// and storing it on a miss. computeFn must rank against the snapshot named
// version. The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	version string,
	query string,
	limit int,
	computeFn func() ([]vector.ScoredDoc, error),
) ([]vector.ScoredDoc, bool, error) {
	if docs, ok := c.Get(ctx, version, query, limit); ok {
		return docs, true, nil
	}
	key := BuildKey(version, query, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		docs, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, version, query, limit, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]vector.ScoredDoc), false, nil
}

// Invalidate drops every cached ranking.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey hashes the snapshot version, the query's sorted whitespace
// fields and the limit. Cosine ranking ignores term order, so permutations
// share a key; rankings from different snapshots never do.
func BuildKey(version, query string, limit int) string {
	fields := strings.Fields(query)
	sort.Strings(fields)
	raw := fmt.Sprintf("%s|%s|limit=%d", version, strings.Join(fields, " "), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
