// Package index holds the boolean inverted index: every term maps to the
// ascending, duplicate-free list of document ids that contain it.
package index

import "sort"

// TermEntry is one dictionary row, used for serialization.
type TermEntry struct {
	Term   string `json:"term"`
	DocIDs []int  `json:"doc_ids"`
}

// Index is immutable once built. Universe is the corpus size N captured at
// build time; boolean complements are taken against {1..Universe}.
type Index struct {
	postings map[string][]int
	universe int
}

// FromEntries rebuilds an Index from serialized entries. Lists are sorted
// and deduplicated on the way in.
func FromEntries(entries []TermEntry, universe int) *Index {
	postings := make(map[string][]int, len(entries))
	for _, e := range entries {
		ids := append(postings[e.Term], e.DocIDs...)
		postings[e.Term] = ids
	}
	for term, ids := range postings {
		postings[term] = SortUnique(ids)
	}
	return &Index{postings: postings, universe: universe}
}

// Universe returns N.
func (ix *Index) Universe() int {
	return ix.universe
}

// Postings returns a copy of the term's posting list; unknown terms yield
// an empty, non-nil list.
func (ix *Index) Postings(term string) []int {
	ids := ix.postings[term]
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

// DocFreq is the number of documents containing term.
func (ix *Index) DocFreq(term string) int {
	return len(ix.postings[term])
}

// Len is the number of distinct terms.
func (ix *Index) Len() int {
	return len(ix.postings)
}

// Terms returns all terms in lexicographic order.
func (ix *Index) Terms() []string {
	terms := make([]string, 0, len(ix.postings))
	for t := range ix.postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Entries returns the dictionary in lexicographic term order.
func (ix *Index) Entries() []TermEntry {
	terms := ix.Terms()
	entries := make([]TermEntry, 0, len(terms))
	for _, t := range terms {
		entries = append(entries, TermEntry{Term: t, DocIDs: ix.Postings(t)})
	}
	return entries
}

// SortUnique sorts ids ascending and removes duplicates in place.
func SortUnique(ids []int) []int {
	if len(ids) == 0 {
		return []int{}
	}
	sort.Ints(ids)
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
