package searcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/vector"
)

const (
	BooleanResultsFile = "results.txt"
	VectorResultsFile  = "vector_search.csv"
)

// ReadQueries returns the non-blank lines of r, trimmed.
func ReadQueries(r io.Reader) ([]string, error) {
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}

// BatchReport counts what RunBatch evaluated.
type BatchReport struct {
	Boolean       int
	BooleanFailed int
	Vector        int
}

// RunBatch evaluates the boolean queries into results.txt and ranks the
// free-text queries into vector_search.csv under outDir. An empty query
// list skips its file.
func RunBatch(ctx context.Context, snap *Snapshot, booleanQueries, vectorQueries []string, workers int, outDir string) (BatchReport, error) {
	var report BatchReport
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return report, fmt.Errorf("creating output directory: %w", err)
	}

	if len(booleanQueries) > 0 {
		results, err := snap.Boolean.EvaluateAll(ctx, booleanQueries, workers)
		if err != nil {
			return report, err
		}
		for _, r := range results {
			if r.Err != nil {
				report.BooleanFailed++
			}
		}
		report.Boolean = len(results)
		err = writeFile(filepath.Join(outDir, BooleanResultsFile), func(w io.Writer) error {
			return boolean.WriteResults(w, results)
		})
		if err != nil {
			return report, err
		}
	}

	if len(vectorQueries) > 0 {
		table, _, err := snap.Ranker.RankMulti(ctx, vectorQueries, workers)
		if err != nil {
			return report, err
		}
		report.Vector = len(vectorQueries)
		err = writeFile(filepath.Join(outDir, VectorResultsFile), func(w io.Writer) error {
			return vector.WriteTable(w, table)
		})
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
