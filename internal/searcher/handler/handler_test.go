package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/vsm"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/vector"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/redis"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *memStore) FlushByPattern(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string]string)
	return n, nil
}

// servedRanker stands in for the searcher service; swap replaces the
// served snapshot the way a reload does.
type servedRanker struct {
	mu      sync.Mutex
	version string
	ranker  *vector.Ranker
}

func (s *servedRanker) Ranker() (string, *vector.Ranker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, s.ranker
}

func (s *servedRanker) swap(version string, r *vector.Ranker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version, s.ranker = version, r
}

func rankerFor(t *testing.T, docs ...[]string) *vector.Ranker {
	t.Helper()
	model, err := vsm.Build(context.Background(), corpus.FromTokens(docs...), 2)
	require.NoError(t, err)
	return vector.New(model.TFIDF, model.IDF, model.N, tokenizer.Whitespace{}, nil)
}

func newTestHandler(t *testing.T, withCache bool) (*Handler, *metrics.Metrics) {
	t.Helper()
	c := corpus.FromTokens(
		[]string{"a", "b"},
		[]string{"b", "c"},
		[]string{"c"},
	)
	ix, err := index.Build(context.Background(), c, 2)
	require.NoError(t, err)
	model, err := vsm.Build(context.Background(), c, 2)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&memStore{data: make(map[string]string)}, time.Minute, m)
	}
	ranker := vector.New(model.TFIDF, model.IDF, model.N, tokenizer.Whitespace{}, nil)
	return New(boolean.New(ix), &servedRanker{version: "v1", ranker: ranker}, qc, m, 10, 2), m
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestBooleanEndpoint(t *testing.T) {
	h, m := newTestHandler(t, false)

	tests := []struct {
		query string
		want  []int
	}{
		{"a+%7C+c", []int{1, 2, 3}},
		{"b+%26+%21+c", []int{1}},
		{"a+%26+c", []int{}},
	}
	for _, tt := range tests {
		rec := serve(h, http.MethodGet, "/api/v1/boolean?q="+tt.query)
		require.Equal(t, http.StatusOK, rec.Code, tt.query)
		var resp BooleanResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, tt.want, resp.Docs, tt.query)
		assert.Equal(t, len(tt.want), resp.Total)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("boolean", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("boolean", "empty")))
}

func TestBooleanSyntaxError(t *testing.T) {
	h, _ := newTestHandler(t, false)
	rec := serve(h, http.MethodGet, "/api/v1/boolean?q=a+%26")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "&", resp.Operator)
	require.NotNil(t, resp.Position)
	assert.Equal(t, 1, *resp.Position)
	assert.Contains(t, resp.Error, "query syntax error")
}

func TestMissingQuery(t *testing.T) {
	h, _ := newTestHandler(t, false)
	for _, path := range []string{"/api/v1/boolean", "/api/v1/search"} {
		rec := serve(h, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "query parameter 'q' is required")
	}
}

func TestSearchEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, false)
	rec := serve(h, http.MethodGet, "/api/v1/search?q=a")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1, resp.Results[0].DocID)
	assert.Greater(t, resp.Results[0].Score, 0.0)
	assert.Equal(t, 10, resp.Limit)
	assert.False(t, resp.CacheHit)
}

func TestSearchLimit(t *testing.T) {
	h, _ := newTestHandler(t, false)

	rec := serve(h, http.MethodGet, "/api/v1/search?q=b+c&limit=50")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Limit, "limit is capped at maxResults")
	assert.Len(t, resp.Results, 2)

	for _, bad := range []string{"0", "-1", "x"} {
		rec := serve(h, http.MethodGet, "/api/v1/search?q=b&limit="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestSearchUsesCache(t *testing.T) {
	h, m := newTestHandler(t, true)

	first := serve(h, http.MethodGet, "/api/v1/search?q=b")
	second := serve(h, http.MethodGet, "/api/v1/search?q=b")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b SearchResponse
	require.NoError(t, json.NewDecoder(first.Body).Decode(&a))
	require.NoError(t, json.NewDecoder(second.Body).Decode(&b))
	assert.False(t, a.CacheHit)
	assert.True(t, b.CacheHit)
	assert.Equal(t, a.Results, b.Results)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))

	stats := serve(h, http.MethodGet, "/api/v1/cache/stats")
	assert.Contains(t, stats.Body.String(), `"hit_rate":"50.0%"`)

	inv := serve(h, http.MethodPost, "/api/v1/cache/invalidate")
	require.Equal(t, http.StatusOK, inv.Code)
	assert.Contains(t, inv.Body.String(), `"keys_deleted":1`)
}

func TestSearchCacheIsScopedToSnapshot(t *testing.T) {
	served := &servedRanker{version: "v1", ranker: rankerFor(t, []string{"a"}, []string{"b"})}
	qc := cache.New(&memStore{data: make(map[string]string)}, time.Minute, nil)
	ix, err := index.Build(context.Background(), corpus.FromTokens([]string{"a"}), 1)
	require.NoError(t, err)
	h := New(boolean.New(ix), served, qc, nil, 10, 10)

	search := func() SearchResponse {
		rec := serve(h, http.MethodGet, "/api/v1/search?q=b")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp SearchResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	first := search()
	require.Len(t, first.Results, 1)
	assert.Equal(t, 2, first.Results[0].DocID)

	// The v1 ranking stays in the store; the new snapshot must not see it.
	served.swap("v2", rankerFor(t, []string{"a"}, []string{"c"}, []string{"b"}))
	second := search()
	assert.False(t, second.CacheHit)
	require.Len(t, second.Results, 1)
	assert.Equal(t, 3, second.Results[0].DocID)

	assert.True(t, search().CacheHit)
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	h, _ := newTestHandler(t, false)

	stats := serve(h, http.MethodGet, "/api/v1/cache/stats")
	assert.Equal(t, http.StatusOK, stats.Code)
	assert.Contains(t, stats.Body.String(), "disabled")

	inv := serve(h, http.MethodPost, "/api/v1/cache/invalidate")
	assert.Equal(t, http.StatusServiceUnavailable, inv.Code)
	assert.True(t, strings.Contains(inv.Body.String(), "caching is disabled"))
}
