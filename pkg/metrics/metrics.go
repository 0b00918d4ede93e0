// Package metrics defines the Prometheus collectors used by the indexer and
// the searcher and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	DocsLoadedTotal      prometheus.Counter
	DocsSkippedTotal     *prometheus.CounterVec
	BuildDuration        *prometheus.HistogramVec
	IndexTerms           prometheus.Gauge
	CorpusDocuments      prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New creates all collectors and registers them on reg. Passing
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsLoadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retrieval_docs_loaded_total",
			Help: "Documents loaded into the corpus.",
		}),
		DocsSkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retrieval_docs_skipped_total",
			Help: "Documents left out of the corpus by reason (unreadable, short).",
		}, []string{"reason"}),
		BuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "retrieval_build_duration_seconds",
			Help:    "Duration of each build stage.",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"stage"}),
		IndexTerms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retrieval_index_terms",
			Help: "Distinct terms in the inverted index.",
		}),
		CorpusDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retrieval_corpus_documents",
			Help: "Documents in the corpus (the boolean universe size).",
		}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retrieval_queries_total",
			Help: "Queries by kind (boolean, vector) and result (ok, empty, error).",
		}, []string{"kind", "result"}),
		QueryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "retrieval_query_latency_seconds",
			Help:    "Query latency in seconds.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retrieval_cache_hits_total",
			Help: "Ranked-search cache hits.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retrieval_cache_misses_total",
			Help: "Ranked-search cache misses.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),
	}

	reg.MustRegister(
		m.DocsLoadedTotal,
		m.DocsSkippedTotal,
		m.BuildDuration,
		m.IndexTerms,
		m.CorpusDocuments,
		m.QueriesTotal,
		m.QueryLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)
	return m
}

// Handler returns the scrape handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
