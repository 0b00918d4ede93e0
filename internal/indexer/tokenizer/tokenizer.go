// Package tokenizer provides the default text normalizer for the engine.
// It lower-cases input, splits on non-letter boundaries, removes stop-words
// and stems every remaining word with the Snowball stemmer.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
)

// None selects the Whitespace normalizer in ForLanguage.
const None = "none"

var stopWords = map[string]map[string]struct{}{
	"english": set(
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "he", "in", "is", "it", "its", "of", "on", "or", "that",
		"the", "to", "was", "were", "will", "with", "this", "but", "they",
		"have", "had", "what", "when", "where", "who", "which", "their",
		"if", "each", "do", "not", "no", "so", "can",
	),
	"russian": set(
		"и", "в", "во", "не", "что", "он", "на", "я", "с", "со", "как",
		"а", "то", "все", "она", "так", "его", "но", "да", "ты", "к", "у",
		"же", "вы", "за", "бы", "по", "только", "ее", "мне", "было", "вот",
		"от", "меня", "еще", "нет", "о", "из", "ему", "ли", "если", "или",
		"ни", "быть", "был", "до", "для", "это", "этот", "при", "также",
	),
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Normalizer implements corpus.TextNormalizer for one Snowball language.
type Normalizer struct {
	language string
	stop     map[string]struct{}
}

// New returns a Normalizer for the given Snowball language
// ("english", "russian", "spanish", ...).
func New(language string) (*Normalizer, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if _, err := snowball.Stem("test", language, true); err != nil {
		return nil, fmt.Errorf("unsupported normalizer language %q: %w", language, err)
	}
	return &Normalizer{language: language, stop: stopWords[language]}, nil
}

// Normalize breaks text into stemmed, lower-cased terms with stop-words
// removed. Words that stem to nothing are dropped.
func (n *Normalizer) Normalize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, "-")
		if word == "" {
			continue
		}
		if _, isStop := n.stop[word]; isStop {
			continue
		}
		stemmed, err := snowball.Stem(word, n.language, true)
		if err != nil || stemmed == "" {
			continue
		}
		terms = append(terms, stemmed)
	}
	return terms
}

// Language reports the Snowball language this normalizer stems with.
func (n *Normalizer) Language() string {
	return n.language
}

// Whitespace is a TextNormalizer for queries that are already normalized:
// it only splits on whitespace.
type Whitespace struct{}

func (Whitespace) Normalize(text string) []string {
	return strings.Fields(text)
}

// ForLanguage returns a stemming Normalizer, or Whitespace when language
// is None or empty.
func ForLanguage(language string) (corpus.TextNormalizer, error) {
	if Canonical(language) == None {
		return Whitespace{}, nil
	}
	return New(language)
}

// Canonical lower-cases language and maps "" to None, so recorded and
// configured names compare equal.
func Canonical(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return None
	}
	return language
}
