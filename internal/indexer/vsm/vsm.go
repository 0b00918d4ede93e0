// Package vsm builds the vector-space model of a corpus: per-document term
// frequencies, corpus-wide inverse document frequencies and their product.
//
// Every stage rounds to Precision decimal digits on its own (TF, then IDF,
// then the product), so values are reproducible across implementations
// even though rounding error compounds.
package vsm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/errors"
)

const Precision = 6

// Vector maps terms to weights.
type Vector map[string]float64

// TermTable maps a document id to its term vector.
type TermTable map[int]Vector

// IDF maps a term to its inverse document frequency. Terms that occur in
// no document are absent, never zero-valued.
type IDF map[string]float64

// Model is the frozen vector-space model of one corpus.
type Model struct {
	N     int
	TF    TermTable
	IDF   IDF
	TFIDF TermTable
}

// Round rounds v to Precision decimal digits, half-to-even on the exact
// binary value.
func Round(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', Precision, 64), 64)
	return r
}

// ComputeTF returns count/len for every term in tokens. An empty sequence
// yields an empty vector.
func ComputeTF(tokens []string) Vector {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	tf := make(Vector, len(counts))
	total := float64(len(tokens))
	for term, n := range counts {
		tf[term] = Round(float64(n) / total)
	}
	return tf
}

// ComputeIDF returns log10(N/df) for every term seen in c. It fails with
// ErrEmptyCorpus when N is 0.
func ComputeIDF(c *corpus.Corpus) (IDF, error) {
	df := make(map[string]int)
	for _, doc := range c.Documents() {
		for _, term := range distinct(doc.Tokens) {
			df[term]++
		}
	}
	return idfFromCounts(df, c.Len())
}

func idfFromCounts(df map[string]int, n int) (IDF, error) {
	if n == 0 {
		return nil, fmt.Errorf("computing idf: %w", apperrors.ErrEmptyCorpus)
	}
	idf := make(IDF, len(df))
	for term, count := range df {
		if count == 0 {
			continue
		}
		idf[term] = Round(math.Log10(float64(n) / float64(count)))
	}
	return idf, nil
}

// ComputeTFIDF multiplies every TF entry by the term's IDF, using 0 for
// terms the IDF table lacks, and rounds the product.
func ComputeTFIDF(tf TermTable, idf IDF) TermTable {
	out := make(TermTable, len(tf))
	for id, vec := range tf {
		weights := make(Vector, len(vec))
		for term, v := range vec {
			weights[term] = Round(v * idf[term])
		}
		out[id] = weights
	}
	return out
}

// Build computes TF and per-document term sets on a pool of workers, waits
// for all of them, then merges document frequencies sequentially and
// derives IDF and TF-IDF.
func Build(ctx context.Context, c *corpus.Corpus, workers int) (*Model, error) {
	if c.Len() == 0 {
		return nil, fmt.Errorf("building vector space model: %w", apperrors.ErrEmptyCorpus)
	}
	if workers < 1 {
		workers = 1
	}
	start := time.Now()
	docs := c.Documents()
	tfs := make([]Vector, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tfs[i] = ComputeTF(doc.Tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing tf: %w", err)
	}

	tf := make(TermTable, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tf[doc.ID] = tfs[i]
		for term := range tfs[i] {
			df[term]++
		}
	}
	idf, err := idfFromCounts(df, len(docs))
	if err != nil {
		return nil, err
	}
	m := &Model{N: len(docs), TF: tf, IDF: idf, TFIDF: ComputeTFIDF(tf, idf)}
	slog.Default().With("component", "vsm").Info("vector space model built",
		"documents", m.N,
		"terms", len(idf),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return m, nil
}

// DocIDs returns the table's document ids in ascending order.
func (t TermTable) DocIDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Terms returns every term appearing in any vector, sorted.
func (t TermTable) Terms() []string {
	seen := make(map[string]struct{})
	for _, vec := range t {
		for term := range vec {
			seen[term] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Terms returns the IDF vocabulary, sorted.
func (idf IDF) Terms() []string {
	terms := make([]string, 0, len(idf))
	for t := range idf {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
