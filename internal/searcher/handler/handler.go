package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/metrics"
)

const (
	kindBoolean = "boolean"
	kindVector  = "vector"
)

type BooleanEvaluator interface {
	Evaluate(expr string) ([]int, error)
}

// Searcher exposes the ranker of the snapshot being served. The version
// names that snapshot and scopes cached rankings to it.
type Searcher interface {
	Ranker() (version string, r *vector.Ranker)
}

type BooleanResponse struct {
	Query string `json:"query"`
	Docs  []int  `json:"docs"`
	Total int    `json:"total"`
}

type SearchResponse struct {
	Query    string             `json:"query"`
	Limit    int                `json:"limit"`
	Results  []vector.ScoredDoc `json:"results"`
	Total    int                `json:"total"`
	CacheHit bool               `json:"cache_hit"`
	TookMs   int64              `json:"took_ms"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Operator string `json:"operator,omitempty"`
	Position *int   `json:"position,omitempty"`
}

type Handler struct {
	boolean      BooleanEvaluator
	searcher     Searcher
	cache        *cache.QueryCache
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New wires the query handlers. queryCache and m may be nil.
func New(b BooleanEvaluator, s Searcher, queryCache *cache.QueryCache, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		boolean:      b,
		searcher:     s,
		cache:        queryCache,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the query and cache routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/boolean", h.Boolean)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Boolean evaluates a "!", "&", "|" expression over the inverted index.
func (h *Handler) Boolean(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	query := r.URL.Query().Get("q")
	if query == "" {
		h.record(kindBoolean, "error", start)
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}

	docs, err := h.boolean.Evaluate(query)
	if err != nil {
		h.record(kindBoolean, "error", start)
		log.Info("boolean query rejected", "query", query, "error", err)
		h.writeError(w, err)
		return
	}
	h.record(kindBoolean, outcome(len(docs)), start)
	log.Info("boolean query completed",
		"query", query,
		"hits", len(docs),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, BooleanResponse{Query: query, Docs: docs, Total: len(docs)})
}

// Search ranks documents by cosine similarity to a free-text query.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.record(kindVector, "error", start)
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.record(kindVector, "error", start)
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, h.maxResults)
	}

	version, ranker := h.searcher.Ranker()
	compute := func() ([]vector.ScoredDoc, error) {
		return ranker.Search(query, limit), nil
	}
	var (
		results  []vector.ScoredDoc
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		results, cacheHit, err = h.cache.GetOrCompute(ctx, version, query, limit, compute)
	} else {
		results, err = compute()
	}
	if err != nil {
		h.record(kindVector, "error", start)
		log.Error("vector search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	took := time.Since(start)
	h.record(kindVector, outcome(len(results)), start)
	log.Info("vector search completed",
		"query", query,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", took.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:    query,
		Limit:    limit,
		Results:  results,
		Total:    len(results),
		CacheHit: cacheHit,
		TookMs:   took.Milliseconds(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) record(kind, result string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.QueriesTotal.WithLabelValues(kind, result).Inc()
	h.metrics.QueryLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func outcome(n int) string {
	if n == 0 {
		return "empty"
	}
	return "ok"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	resp := errorResponse{Error: err.Error()}
	if status >= http.StatusInternalServerError {
		resp.Error = "internal error"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Error = appErr.Message
	}
	var syntaxErr *apperrors.QuerySyntaxError
	if errors.As(err, &syntaxErr) {
		resp.Operator = syntaxErr.Operator
		pos := syntaxErr.Position
		resp.Position = &pos
	}
	h.writeJSON(w, status, resp)
}
