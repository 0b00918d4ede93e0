package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEnglish(t *testing.T) {
	n, err := New("english")
	require.NoError(t, err)

	got := n.Normalize("The Running dogs, and the CATS!")
	assert.Equal(t, []string{"run", "dog", "cat"}, got)
}

func TestNormalizeRussianDropsStopWords(t *testing.T) {
	n, err := New("Russian")
	require.NoError(t, err)
	assert.Equal(t, "russian", n.Language())

	got := n.Normalize("и в")
	assert.Empty(t, got)
	assert.NotEmpty(t, n.Normalize("алгоритмы"))
}

func TestNormalizeBlankInput(t *testing.T) {
	n, err := New("english")
	require.NoError(t, err)
	assert.Empty(t, n.Normalize("  \n\t "))
	assert.Empty(t, n.Normalize("-- , ."))
}

func TestNewRejectsUnknownLanguage(t *testing.T) {
	_, err := New("klingon")
	assert.Error(t, err)
}

func TestWhitespace(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Whitespace{}.Normalize(" a \n b "))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, None, Canonical(""))
	assert.Equal(t, None, Canonical(" None "))
	assert.Equal(t, "russian", Canonical("Russian"))
}

func TestForLanguage(t *testing.T) {
	n, err := ForLanguage("none")
	require.NoError(t, err)
	assert.Equal(t, Whitespace{}, n)

	n, err = ForLanguage("english")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, n.Normalize("cats"))

	_, err = ForLanguage("klingon")
	assert.Error(t, err)
}

var benchTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"long": strings.Repeat(`Information retrieval systems combine tokenization, stemming
        and stop word removal to normalize text into searchable terms. The inverted
        index maps each term to the documents containing it. `, 20),
}

func BenchmarkNormalize(b *testing.B) {
	n, err := New("english")
	if err != nil {
		b.Fatal(err)
	}
	for name, text := range benchTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = n.Normalize(text)
			}
		})
	}
}

func BenchmarkNormalizeParallel(b *testing.B) {
	n, err := New("english")
	if err != nil {
		b.Fatal(err)
	}
	text := benchTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = n.Normalize(text)
		}
	})
}
