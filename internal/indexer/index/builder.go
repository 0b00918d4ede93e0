package index

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
)

// Build computes the distinct term set of every document on a pool of
// workers, waits for all of them, then folds the sets into the index in
// document order on the calling goroutine. Empty documents add no postings.
func Build(ctx context.Context, c *corpus.Corpus, workers int) (*Index, error) {
	if workers < 1 {
		workers = 1
	}
	docs := c.Documents()
	termSets := make([][]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			termSets[i] = distinctTerms(doc.Tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	postings := make(map[string][]int)
	for i, terms := range termSets {
		id := docs[i].ID
		for _, term := range terms {
			postings[term] = append(postings[term], id)
		}
	}
	for term, ids := range postings {
		postings[term] = SortUnique(ids)
	}

	ix := &Index{postings: postings, universe: c.Len()}
	slog.Default().With("component", "index-builder").Info("index built",
		"documents", ix.universe,
		"terms", len(postings),
		"workers", workers,
	)
	return ix, nil
}

func distinctTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}
