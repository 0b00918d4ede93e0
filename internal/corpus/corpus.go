// Package corpus holds the ordered, read-only collection of normalized
// documents that every index and model in the engine is derived from.
package corpus

// TextNormalizer turns free text into the normalized token sequence the
// corpus was built with (case folding, stop-word removal, stemming).
type TextNormalizer interface {
	Normalize(text string) []string
}

// Document is one corpus entry. ID is its 1-based position in ingestion order.
type Document struct {
	ID     int
	Name   string
	Tokens []string
}

// Corpus is an immutable, ordered set of documents with ids 1..N.
type Corpus struct {
	docs []Document
}

// New builds a corpus from named token sequences, assigning ids in order.
func New(names []string, tokens [][]string) *Corpus {
	docs := make([]Document, len(tokens))
	for i, toks := range tokens {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		docs[i] = Document{ID: i + 1, Name: name, Tokens: toks}
	}
	return &Corpus{docs: docs}
}

// FromTokens builds an unnamed corpus; handy for tests and small fixtures.
func FromTokens(tokens ...[]string) *Corpus {
	return New(nil, tokens)
}

// Len returns N, the number of documents and the size of the id universe.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

// Documents returns the documents in id order. Callers must not modify them.
func (c *Corpus) Documents() []Document {
	if c == nil {
		return nil
	}
	return c.docs
}

// Document looks up a document by id.
func (c *Corpus) Document(id int) (Document, bool) {
	if c == nil || id < 1 || id > len(c.docs) {
		return Document{}, false
	}
	return c.docs[id-1], true
}
