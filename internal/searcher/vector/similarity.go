// Package vector ranks documents against free-text queries by cosine
// similarity between TF-IDF document vectors and query vectors.
package vector

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/vsm"
)

// Similarity scores two term-weight vectors.
type Similarity interface {
	Similarity(a, b vsm.Vector) float64
}

// Cosine implements Similarity with CosineSimilarity.
type Cosine struct{}

func (Cosine) Similarity(a, b vsm.Vector) float64 {
	return CosineSimilarity(a, b)
}

// CosineSimilarity treats the union of both key sets as the dimensions,
// with missing entries as 0. It returns 0 when either vector has zero norm.
// Terms are visited in sorted order so the result does not depend on map
// iteration order.
func CosineSimilarity(a, b vsm.Vector) float64 {
	var dot, na, nb float64
	for _, term := range unionKeys(a, b) {
		x, y := a[term], b[term]
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / math.Sqrt(na*nb)
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

func unionKeys(a, b vsm.Vector) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
