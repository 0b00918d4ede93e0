package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher"
)

type target struct {
	kind    string
	path    string
	queries []string
}

type Stats struct {
	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies map[string][]time.Duration
	codes     map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies: make(map[string][]time.Duration),
		codes:     make(map[int]int64),
	}
}

func (s *Stats) Record(kind string, d time.Duration, status int, cacheHit bool, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}
	s.mu.Lock()
	s.latencies[kind] = append(s.latencies[kind], d)
	s.codes[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	booleanFile := flag.String("boolean", "", "boolean queries, one per line")
	vectorFile := flag.String("vector", "", "free-text queries, one per line")
	limit := flag.Int("limit", 10, "limit for ranked queries")
	flag.Parse()

	targets, err := loadTargets(*booleanFile, *vectorFile, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Retrieval Engine Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	for _, t := range targets {
		fmt.Printf("Queries:     %d %s\n", len(t.queries), t.kind)
	}
	fmt.Println()

	stats := run(*baseURL, *concurrency, *duration, targets)
	if !printReport(stats, *duration) {
		os.Exit(1)
	}
}

func loadTargets(booleanFile, vectorFile string, limit int) ([]target, error) {
	var targets []target
	for _, src := range []struct{ kind, file, path string }{
		{"boolean", booleanFile, "/api/v1/boolean?q=%s"},
		{"vector", vectorFile, "/api/v1/search?q=%s&limit=" + fmt.Sprint(limit)},
	} {
		if src.file == "" {
			continue
		}
		f, err := os.Open(src.file)
		if err != nil {
			return nil, err
		}
		queries, err := searcher.ReadQueries(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		if len(queries) > 0 {
			targets = append(targets, target{kind: src.kind, path: src.path, queries: queries})
		}
	}
	if len(targets) == 0 {
		targets = append(targets, target{
			kind:    "vector",
			path:    "/api/v1/search?q=%s&limit=" + fmt.Sprint(limit),
			queries: []string{"информационный поиск", "обратный индекс", "векторная модель"},
		})
	}
	return targets, nil
}

func run(baseURL string, concurrency int, duration time.Duration, targets []target) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var g errgroup.Group
	for w := range concurrency {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				t := targets[i%len(targets)]
				q := t.queries[(i/len(targets))%len(t.queries)]
				rawURL := baseURL + fmt.Sprintf(t.path, url.QueryEscape(q))
				start := time.Now()
				status, hit, err := fetch(ctx, client, rawURL)
				if ctx.Err() != nil {
					return nil
				}
				stats.Record(t.kind, time.Since(start), status, hit, err)
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

func fetch(ctx context.Context, client *http.Client, rawURL string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body.CacheHit, nil
}

func printReport(stats *Stats, duration time.Duration) bool {
	total := stats.total.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", stats.success.Load())
	fmt.Printf("Errors:          %d\n", stats.errors.Load())
	fmt.Printf("Cache Hits:      %d\n", stats.cacheHits.Load())
	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		return false
	}
	fmt.Printf("Error Rate:      %.2f%%\n", float64(stats.errors.Load())/float64(total)*100)
	fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())

	stats.mu.Lock()
	defer stats.mu.Unlock()
	kinds := make([]string, 0, len(stats.latencies))
	for kind := range stats.latencies {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	for _, kind := range kinds {
		s := summarize(stats.latencies[kind])
		fmt.Printf("\n=== Latency (%s) ===\n", kind)
		fmt.Printf("Min:    %s\n", s.min)
		fmt.Printf("Avg:    %s\n", s.avg)
		fmt.Printf("P50:    %s\n", s.p50)
		fmt.Printf("P95:    %s\n", s.p95)
		fmt.Printf("P99:    %s\n", s.p99)
		fmt.Printf("Max:    %s\n", s.max)
		fmt.Printf("StdDev: %s\n", s.stddev)
	}

	fmt.Println("\n=== Status Codes ===")
	codes := make([]int, 0, len(stats.codes))
	for code := range stats.codes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.codes[code])
	}
	return true
}

type summary struct {
	min, avg, p50, p95, p99, max, stddev time.Duration
}

func summarize(latencies []time.Duration) summary {
	if len(latencies) == 0 {
		return summary{}
	}
	sorted := slices.Clone(latencies)
	slices.Sort(sorted)
	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg := sum / time.Duration(len(sorted))
	var sq float64
	for _, l := range sorted {
		diff := float64(l - avg)
		sq += diff * diff
	}
	return summary{
		min:    sorted[0],
		avg:    avg,
		p50:    percentile(sorted, 50),
		p95:    percentile(sorted, 95),
		p99:    percentile(sorted, 99),
		max:    sorted[len(sorted)-1],
		stddev: time.Duration(math.Sqrt(sq / float64(len(sorted)))),
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
