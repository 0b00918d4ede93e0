package vector

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/vsm"
)

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Cell renders the doc as "<docId> <score>" with six decimals.
func (d ScoredDoc) Cell() string {
	return fmt.Sprintf("%d %.6f", d.DocID, d.Score)
}

// Ranker scores every document of a frozen TF-IDF table against queries.
// It only reads its inputs and is safe for concurrent use.
type Ranker struct {
	tfidf      vsm.TermTable
	docIDs     []int
	vectorizer *Vectorizer
	sim        Similarity
	logger     *slog.Logger
}

// New builds a Ranker. A nil sim defaults to Cosine.
func New(tfidf vsm.TermTable, idf vsm.IDF, totalDocs int, normalizer corpus.TextNormalizer, sim Similarity) *Ranker {
	if sim == nil {
		sim = Cosine{}
	}
	return &Ranker{
		tfidf:      tfidf,
		docIDs:     tfidf.DocIDs(),
		vectorizer: NewVectorizer(normalizer, idf, totalDocs),
		sim:        sim,
		logger:     slog.Default().With("component", "vector-ranker"),
	}
}

// Rank returns every document with a strictly positive score, ordered by
// score descending and then by document id ascending.
func (r *Ranker) Rank(query string) []ScoredDoc {
	qv := r.vectorizer.Vectorize(query)
	result := make([]ScoredDoc, 0)
	if len(qv) == 0 {
		return result
	}
	for _, id := range r.docIDs {
		score := r.sim.Similarity(r.tfidf[id], qv)
		if score > 0 {
			result = append(result, ScoredDoc{DocID: id, Score: score})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Search is Rank truncated to limit results; limit <= 0 means no limit.
func (r *Ranker) Search(query string, limit int) []ScoredDoc {
	result := r.Rank(query)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Table holds one column per query; Rows are rank positions, padded with
// empty cells up to the longest column.
type Table struct {
	Queries []string
	Rows    [][]string
}

// RankMulti ranks every query concurrently and lays the results out as a
// Table. It also returns the per-query rankings in query order.
func (r *Ranker) RankMulti(ctx context.Context, queries []string, workers int) (*Table, [][]ScoredDoc, error) {
	if workers < 1 {
		workers = 1
	}
	rankings := make([][]ScoredDoc, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rankings[i] = r.Rank(q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("ranking queries: %w", err)
	}
	r.logger.Info("queries ranked", "queries", len(queries))
	return BuildTable(queries, rankings), rankings, nil
}

// BuildTable lays out rankings (one per query) as a padded table.
func BuildTable(queries []string, rankings [][]ScoredDoc) *Table {
	maxLen := 0
	for _, ranked := range rankings {
		maxLen = max(maxLen, len(ranked))
	}
	t := &Table{Queries: append([]string(nil), queries...), Rows: make([][]string, maxLen)}
	for row := range t.Rows {
		cells := make([]string, len(queries))
		for col, ranked := range rankings {
			if row < len(ranked) {
				cells[col] = ranked[row].Cell()
			}
		}
		t.Rows[row] = cells
	}
	return t
}

// WriteTable writes t as CSV with the queries as the header row.
func WriteTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Queries); err != nil {
		return fmt.Errorf("writing ranking header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing ranking rows: %w", err)
	}
	return nil
}
