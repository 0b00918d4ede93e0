// Package searcher serves boolean and ranked queries from the artifacts
// written by the indexer. The serving state is an immutable Snapshot that
// is replaced atomically when a newer build is announced.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/vsm"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/vector"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/kafka"
)

// ErrLanguageMismatch is returned when a build was normalized with a
// language other than the one the searcher is pinned to.
var ErrLanguageMismatch = errors.New("build language mismatch")

// Snapshot is one frozen build ready to answer queries. Language is the
// normalizer language the corpus was built with.
type Snapshot struct {
	Version  string
	Language string
	Index    *index.Index
	Boolean  *boolean.Engine
	Ranker   *vector.Ranker
}

func NewSnapshot(version string, ix *index.Index, tfidf vsm.TermTable, idf vsm.IDF, normalizer corpus.TextNormalizer) *Snapshot {
	return &Snapshot{
		Version:  version,
		Language: tokenizer.None,
		Index:    ix,
		Boolean:  boolean.New(ix),
		Ranker:   vector.New(tfidf, idf, ix.Universe(), normalizer, nil),
	}
}

// LoadSnapshot reads the build manifest, the newest segment, tf_idf.csv and
// idf.csv from dir. The segment file name is the snapshot version. Queries
// are normalized with the language in the manifest unless override is set;
// boolean operands always go through the build's normalizer.
func LoadSnapshot(dir string, override corpus.TextNormalizer) (*Snapshot, error) {
	manifest, err := indexer.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	built, err := tokenizer.ForLanguage(manifest.Language)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", manifest.BuildID, err)
	}
	queries := built
	if override != nil {
		queries = override
	}

	ix, segPath, err := indexer.LoadIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	tfidf, err := readTable(filepath.Join(dir, indexer.TFIDFFile), vsm.ReadTermTable)
	if err != nil {
		return nil, err
	}
	idf, err := readTable(filepath.Join(dir, indexer.IDFFile), vsm.ReadIDF)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(filepath.Base(segPath), ix, tfidf, idf, queries)
	snap.Language = manifest.Language
	if manifest.Language != tokenizer.None {
		snap.Boolean = snap.Boolean.WithNormalizer(built)
	}
	return snap, nil
}

// CheckLanguage fails with ErrLanguageMismatch unless want is empty or
// names the language snap was built with.
func CheckLanguage(snap *Snapshot, want string) error {
	if strings.TrimSpace(want) == "" {
		return nil
	}
	if got := tokenizer.Canonical(want); got != snap.Language {
		return fmt.Errorf("%w: build %s was normalized with %q, searcher expects %q",
			ErrLanguageMismatch, snap.Version, snap.Language, got)
	}
	return nil
}

func readTable[T any](path string, read func(r io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	t, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// Invalidator drops results computed against an older snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

type Service struct {
	current  atomic.Pointer[Snapshot]
	dir      string
	override corpus.TextNormalizer
	language string
	cache    Invalidator
	logger   *slog.Logger
}

// NewService serves snap and reloads from dir on demand. override replaces
// the build's query normalizer when non-nil; cache may be nil.
func NewService(snap *Snapshot, dir string, override corpus.TextNormalizer, cache Invalidator) *Service {
	s := &Service{
		dir:      dir,
		override: override,
		cache:    cache,
		logger:   slog.Default().With("component", "searcher"),
	}
	s.current.Store(snap)
	return s
}

// PinLanguage makes the service refuse snapshots built with any language
// but want. The current snapshot is checked immediately.
func (s *Service) PinLanguage(want string) error {
	if err := CheckLanguage(s.current.Load(), want); err != nil {
		return err
	}
	s.language = want
	return nil
}

func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Service) Evaluate(expr string) ([]int, error) {
	return s.current.Load().Boolean.Evaluate(expr)
}

func (s *Service) Search(query string, limit int) []vector.ScoredDoc {
	return s.current.Load().Ranker.Search(query, limit)
}

// Ranker returns the current snapshot's ranker with its version. Both come
// from one snapshot even while a reload swaps it.
func (s *Service) Ranker() (string, *vector.Ranker) {
	snap := s.current.Load()
	return snap.Version, snap.Ranker
}

// Reload loads the newest artifacts and swaps them in. In-flight queries
// finish on the snapshot they started with.
func (s *Service) Reload(ctx context.Context) error {
	snap, err := LoadSnapshot(s.dir, s.override)
	if err != nil {
		return err
	}
	if err := CheckLanguage(snap, s.language); err != nil {
		return err
	}
	prev := s.current.Swap(snap)
	if s.cache != nil {
		if _, err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	s.logger.Info("snapshot reloaded",
		"previous", prev.Version,
		"current", snap.Version,
		"language", snap.Language,
		"documents", snap.Index.Universe(),
		"terms", snap.Index.Len(),
	)
	return nil
}

// HandleBuildEvent is a kafka.MessageHandler for the index.complete topic.
// Events for the segment already being served are ignored.
func (s *Service) HandleBuildEvent(ctx context.Context, _ []byte, value []byte) error {
	ev, err := kafka.DecodeJSON[indexer.BuildEvent](value)
	if err != nil {
		return err
	}
	if ev.Segment != "" && filepath.Base(ev.Segment) == s.current.Load().Version {
		s.logger.Debug("build already served", "build_id", ev.BuildID)
		return nil
	}
	s.logger.Info("build announced, reloading", "build_id", ev.BuildID, "documents", ev.Documents)
	return s.Reload(ctx)
}
