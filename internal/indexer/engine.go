package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/vsm"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/tracing"
)

// Artifact file names written by Export.
const (
	DictionaryFile = "dictionary.txt"
	TFFile         = "tf.csv"
	IDFFile        = "idf.csv"
	TFIDFFile      = "tf_idf.csv"
	ManifestFile   = "build.json"
	SegmentDir     = "segments"
)

// Summary describes one completed build.
type Summary struct {
	BuildID     string        `json:"build_id"`
	Language    string        `json:"language"`
	Documents   int           `json:"documents"`
	Terms       int           `json:"terms"`
	Skipped     int           `json:"skipped"`
	Filtered    int           `json:"filtered"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Engine owns a frozen corpus together with the inverted index and the
// vector-space model derived from it. Nothing in it changes after Build.
type Engine struct {
	corpus  *corpus.Corpus
	index   *index.Index
	model   *vsm.Model
	summary Summary
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Build loads the corpus described by cfg and derives the index and the
// model from it. m may be nil.
func Build(ctx context.Context, cfg config.CorpusConfig, workers int, m *metrics.Metrics) (*Engine, error) {
	start := time.Now()
	language := tokenizer.Canonical(cfg.Language)
	loader := corpus.NewLoader(cfg, workers)
	if language != tokenizer.None {
		n, err := tokenizer.New(language)
		if err != nil {
			return nil, fmt.Errorf("corpus normalizer: %w", err)
		}
		loader.WithNormalizer(n)
	}
	_, span := tracing.Start(ctx, "load")
	c, stats, err := loader.Load(ctx)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	span.Set("loaded", stats.Loaded, "skipped", stats.Skipped, "filtered", stats.Filtered)
	if m != nil {
		m.DocsLoadedTotal.Add(float64(stats.Loaded))
		m.DocsSkippedTotal.WithLabelValues("unreadable").Add(float64(stats.Skipped))
		m.DocsSkippedTotal.WithLabelValues("short").Add(float64(stats.Filtered))
		m.BuildDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	}
	e, err := FromCorpus(ctx, c, workers, m)
	if err != nil {
		return nil, err
	}
	e.summary.Language = language
	e.summary.Skipped = stats.Skipped
	e.summary.Filtered = stats.Filtered
	e.summary.Duration = time.Since(start)
	return e, nil
}

// FromCorpus builds the index and the model from an already loaded corpus.
// The two derivations are independent and run side by side.
func FromCorpus(ctx context.Context, c *corpus.Corpus, workers int, m *metrics.Metrics) (*Engine, error) {
	start := time.Now()
	e := &Engine{
		corpus:  c,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stageStart := time.Now()
		sctx, span := tracing.Start(gctx, "index")
		defer span.End()
		ix, err := index.Build(sctx, c, workers)
		if err != nil {
			return err
		}
		e.index = ix
		e.observe("index", stageStart)
		return nil
	})
	g.Go(func() error {
		stageStart := time.Now()
		sctx, span := tracing.Start(gctx, "model")
		defer span.End()
		model, err := vsm.Build(sctx, c, workers)
		if err != nil {
			return err
		}
		e.model = model
		e.observe("model", stageStart)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}

	e.summary = Summary{
		BuildID:     uuid.NewString(),
		Language:    tokenizer.None,
		Documents:   c.Len(),
		Terms:       e.index.Len(),
		Duration:    time.Since(start),
		CompletedAt: time.Now().UTC(),
	}
	if m != nil {
		m.IndexTerms.Set(float64(e.index.Len()))
		m.CorpusDocuments.Set(float64(c.Len()))
	}
	e.logger.Info("engine built",
		"build_id", e.summary.BuildID,
		"documents", e.summary.Documents,
		"terms", e.summary.Terms,
		"duration_ms", e.summary.Duration.Milliseconds(),
	)
	return e, nil
}

func (e *Engine) observe(stage string, start time.Time) {
	if e.metrics != nil {
		e.metrics.BuildDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) Corpus() *corpus.Corpus { return e.corpus }

func (e *Engine) Index() *index.Index { return e.index }

func (e *Engine) Model() *vsm.Model { return e.model }

func (e *Engine) Summary() Summary { return e.summary }

// Universe is the corpus size N the index was built against.
func (e *Engine) Universe() int { return e.index.Universe() }

// Artifacts lists the files written by Export.
type Artifacts struct {
	Dictionary string
	TF         string
	IDF        string
	TFIDF      string
	Manifest   string
	Segment    string
}

// Export writes the dictionary, the three tables, the build manifest and a
// binary index segment into dir. Each file is written to a temporary name
// and renamed into place.
func (e *Engine) Export(dir string) (Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("creating output directory: %w", err)
	}
	a := Artifacts{
		Dictionary: filepath.Join(dir, DictionaryFile),
		TF:         filepath.Join(dir, TFFile),
		IDF:        filepath.Join(dir, IDFFile),
		TFIDF:      filepath.Join(dir, TFIDFFile),
		Manifest:   filepath.Join(dir, ManifestFile),
	}
	writes := []struct {
		path  string
		write func(io.Writer) error
	}{
		{a.Dictionary, func(w io.Writer) error { return index.WriteDictionary(w, e.index) }},
		{a.TF, func(w io.Writer) error { return vsm.WriteTermTable(w, e.model.TF) }},
		{a.IDF, func(w io.Writer) error { return vsm.WriteIDF(w, e.model.IDF) }},
		{a.TFIDF, func(w io.Writer) error { return vsm.WriteTermTable(w, e.model.TFIDF) }},
		{a.Manifest, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(e.summary)
		}},
	}
	for _, wr := range writes {
		if err := writeAtomic(wr.path, wr.write); err != nil {
			return Artifacts{}, err
		}
	}

	// A corpus of empty documents still gets a segment so N survives.
	segDir := filepath.Join(dir, SegmentDir)
	name, err := segment.NewWriter(segDir).Write(e.index)
	if err != nil {
		return Artifacts{}, fmt.Errorf("writing segment: %w", err)
	}
	a.Segment = filepath.Join(segDir, name)
	e.logger.Info("artifacts exported",
		"dir", dir,
		"segment", a.Segment,
		"terms", e.index.Len(),
	)
	return a, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadManifest returns the Summary Export recorded in dir.
func ReadManifest(dir string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return s, fmt.Errorf("reading build manifest: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing build manifest: %w", err)
	}
	s.Language = tokenizer.Canonical(s.Language)
	return s, nil
}

// LoadIndex opens the newest segment under dir/segments and materializes
// it. The segment path is returned alongside.
func LoadIndex(dir string) (*index.Index, string, error) {
	path, err := segment.Latest(filepath.Join(dir, SegmentDir))
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return nil, "", fmt.Errorf("no index segment in %s", dir)
	}
	r, err := segment.OpenReader(path)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()
	ix, err := r.Index()
	if err != nil {
		return nil, "", err
	}
	return ix, path, nil
}
