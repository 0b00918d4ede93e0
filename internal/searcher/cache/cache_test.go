package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/vector"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/resilience"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.ErrMiss
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value)
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

var ranking = []vector.ScoredDoc{{DocID: 2, Score: 0.5}, {DocID: 1, Score: 0.25}}

func TestGetOrComputeCachesResult(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(newMemStore(), time.Minute, m)
	ctx := context.Background()
	calls := 0
	compute := func() ([]vector.ScoredDoc, error) {
		calls++
		return ranking, nil
	}

	got, hit, err := c.GetOrCompute(ctx, "v1", "a b", 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, ranking, got)

	got, hit, err = c.GetOrCompute(ctx, "v1", "b  a", 10, compute)
	require.NoError(t, err)
	assert.True(t, hit, "term order does not change the key")
	assert.Equal(t, ranking, got)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "v1", "q", 5, func() ([]vector.ScoredDoc, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), "v1", "q", 5)
	assert.False(t, ok)
}

func TestStoreFailureIsAMiss(t *testing.T) {
	s := newMemStore()
	s.err = errors.New("connection refused")
	c := New(s, time.Minute, nil)

	got, hit, err := c.GetOrCompute(context.Background(), "v1", "q", 5, func() ([]vector.ScoredDoc, error) {
		return ranking, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, ranking, got)
}

func TestConcurrentMissesCollapse(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() ([]vector.ScoredDoc, error) {
		calls.Add(1)
		<-release
		return ranking, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := c.GetOrCompute(context.Background(), "v1", "q", 3, compute)
			assert.NoError(t, err)
			assert.Equal(t, ranking, got)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestInvalidate(t *testing.T) {
	s := newMemStore()
	c := New(s, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, "v1", "a", 1, ranking)
	c.Set(ctx, "v2", "b", 1, ranking)
	s.data["other:key"] = "x"

	n, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, s.data, 1)
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, BuildKey("v1", "a b", 10), BuildKey("v1", " b a ", 10))
	assert.NotEqual(t, BuildKey("v1", "a b", 10), BuildKey("v1", "a b", 5))
	assert.NotEqual(t, BuildKey("v1", "a a b", 10), BuildKey("v1", "a b", 10))
	assert.NotEqual(t, BuildKey("v1", "a b", 10), BuildKey("v2", "a b", 10))
	assert.True(t, strings.HasPrefix(BuildKey("v1", "x", 1), keyPrefix))
}

func TestRankingFromOlderSnapshotIsNotServed(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	ctx := context.Background()
	stale := []vector.ScoredDoc{{DocID: 1, Score: 1}}
	fresh := []vector.ScoredDoc{{DocID: 3, Score: 1}}

	// A v1 computation that finishes after the swap to v2 and the
	// invalidation still stores its result, but only under v1.
	_, _, err := c.GetOrCompute(ctx, "v1", "q", 5, func() ([]vector.ScoredDoc, error) {
		_, err := c.Invalidate(ctx)
		return stale, err
	})
	require.NoError(t, err)

	got, hit, err := c.GetOrCompute(ctx, "v2", "q", 5, func() ([]vector.ScoredDoc, error) {
		return fresh, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, fresh, got)
}

func TestBreakerStoreFailsFast(t *testing.T) {
	s := newMemStore()
	cb := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	guarded := WithBreaker(s, cb)
	ctx := context.Background()

	_, err := guarded.Get(ctx, "absent")
	assert.ErrorIs(t, err, pkgredis.ErrMiss)
	assert.Equal(t, resilience.StateClosed, cb.State(), "misses are not failures")

	s.err = errors.New("connection refused")
	guarded.Get(ctx, "k")
	guarded.Get(ctx, "k")
	assert.Equal(t, resilience.StateOpen, cb.State())

	s.err = nil
	_, err = guarded.Get(ctx, "k")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	c := New(guarded, time.Minute, nil)
	got, hit, err := c.GetOrCompute(ctx, "v1", "q", 1, func() ([]vector.ScoredDoc, error) { return ranking, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, ranking, got)
}
