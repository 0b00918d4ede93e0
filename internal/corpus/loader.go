package corpus

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/errors"
)

// LoadStats summarizes one Load call.
type LoadStats struct {
	Files    int
	Loaded   int
	Skipped  int
	Filtered int
}

// Loader reads per-document token files from a directory with a bounded
// worker pool.
type Loader struct {
	cfg        config.CorpusConfig
	workers    int
	normalizer TextNormalizer
	logger     *slog.Logger
}

func NewLoader(cfg config.CorpusConfig, workers int) *Loader {
	if workers < 1 {
		workers = 1
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "*"
	}
	return &Loader{
		cfg:     cfg,
		workers: workers,
		logger:  slog.Default().With("component", "corpus-loader"),
	}
}

// WithNormalizer makes Load pass each document's text through n. Without
// one the tokens are kept exactly as read.
func (l *Loader) WithNormalizer(n TextNormalizer) *Loader {
	l.normalizer = n
	return l
}

type slot struct {
	name   string
	tokens []string
	err    error
}

// Load reads every matching file. Files are read concurrently; ids are
// assigned afterwards in natural file-name order. Unreadable files are
// logged and skipped, as are files shorter than MinTokens.
func (l *Loader) Load(ctx context.Context) (*Corpus, LoadStats, error) {
	paths, err := filepath.Glob(filepath.Join(l.cfg.Dir, l.cfg.Pattern))
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("listing corpus directory %s: %w", l.cfg.Dir, err)
	}
	if _, err := os.Stat(l.cfg.Dir); err != nil {
		return nil, LoadStats{}, fmt.Errorf("opening corpus directory: %w", err)
	}
	sortNatural(paths)

	slots := make([]slot, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokens, err := ReadTokens(path)
			if err == nil && l.normalizer != nil {
				tokens = l.normalizer.Normalize(strings.Join(tokens, " "))
			}
			slots[i] = slot{name: filepath.Base(path), tokens: tokens, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, LoadStats{}, fmt.Errorf("loading corpus: %w", err)
	}

	stats := LoadStats{Files: len(paths)}
	names := make([]string, 0, len(slots))
	tokens := make([][]string, 0, len(slots))
	for _, s := range slots {
		if s.err != nil {
			stats.Skipped++
			l.logger.Warn("skipping unreadable document", "file", s.name, "error", s.err)
			continue
		}
		if len(s.tokens) < l.cfg.MinTokens {
			stats.Filtered++
			l.logger.Debug("skipping short document",
				"file", s.name,
				"tokens", len(s.tokens),
				"min_tokens", l.cfg.MinTokens,
			)
			continue
		}
		names = append(names, s.name)
		tokens = append(tokens, s.tokens)
	}
	stats.Loaded = len(tokens)
	l.logger.Info("corpus loaded",
		"dir", l.cfg.Dir,
		"files", stats.Files,
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
		"filtered", stats.Filtered,
	)
	return New(names, tokens), stats, nil
}

// ReadTokens reads a token file: whitespace separated, normally one token
// per line. Blank lines are ignored.
func ReadTokens(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &apperrors.IOError{Path: path, Err: err}
	}
	defer f.Close()

	tokens := make([]string, 0, 256)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		tokens = append(tokens, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, &apperrors.IOError{Path: path, Err: err}
	}
	return tokens, nil
}

// sortNatural orders names so that embedded numbers compare numerically
// (doc_2.txt before doc_10.txt).
func sortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})
}

func naturalLess(a, b string) bool {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		if ca[i] == cb[i] {
			continue
		}
		na, errA := strconv.Atoi(ca[i])
		nb, errB := strconv.Atoi(cb[i])
		if errA == nil && errB == nil && na != nb {
			return na < nb
		}
		return ca[i] < cb[i]
	}
	return len(ca) < len(cb)
}

func chunks(s string) []string {
	var out []string
	start := 0
	rs := []rune(s)
	for i := 1; i <= len(rs); i++ {
		if i == len(rs) || unicode.IsDigit(rs[i]) != unicode.IsDigit(rs[i-1]) {
			out = append(out, string(rs[start:i]))
			start = i
		}
	}
	return out
}
