package vector

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/vsm"
)

// Vectorizer turns free-text queries into weighted query vectors.
type Vectorizer struct {
	normalizer corpus.TextNormalizer
	idf        vsm.IDF
	fallback   float64
}

// NewVectorizer weights query terms by local TF times IDF. Terms missing
// from idf get log10(totalDocs) instead, unlike vsm.ComputeTFIDF which
// uses 0 for them.
func NewVectorizer(normalizer corpus.TextNormalizer, idf vsm.IDF, totalDocs int) *Vectorizer {
	fallback := 0.0
	if totalDocs > 0 {
		fallback = math.Log10(float64(totalDocs))
	}
	return &Vectorizer{normalizer: normalizer, idf: idf, fallback: fallback}
}

// Vectorize normalizes text and builds its query vector. Blank tokens are
// discarded; a query with no tokens yields an empty vector.
func (v *Vectorizer) Vectorize(text string) vsm.Vector {
	tokens := v.normalizer.Normalize(text)
	counts := make(map[string]int, len(tokens))
	total := 0
	for _, t := range tokens {
		if strings.TrimSpace(t) == "" {
			continue
		}
		counts[t]++
		total++
	}
	vec := make(vsm.Vector, len(counts))
	for term, n := range counts {
		weight, ok := v.idf[term]
		if !ok {
			weight = v.fallback
		}
		vec[term] = float64(n) / float64(total) * weight
	}
	return vec
}
