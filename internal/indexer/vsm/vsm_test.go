package vsm

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/errors"
)

func scenario() *corpus.Corpus {
	return corpus.FromTokens(
		[]string{"a", "a", "b"},
		[]string{"b", "c"},
	)
}

func TestComputeTFScenario(t *testing.T) {
	tf := ComputeTF([]string{"a", "a", "b"})
	assert.Equal(t, Vector{"a": 0.666667, "b": 0.333333}, tf)
}

func TestComputeTFEmpty(t *testing.T) {
	assert.Empty(t, ComputeTF(nil))
}

func TestTFSumsToOne(t *testing.T) {
	docs := [][]string{
		{"a", "b", "c"},
		{"x", "x", "x", "y", "z", "z", "q"},
		{"один", "два", "два", "три", "три", "три"},
	}
	for _, tokens := range docs {
		var sum float64
		for _, v := range ComputeTF(tokens) {
			sum += v
		}
		// Each of at most len(tokens) terms can be off by half a unit in the
		// last place.
		assert.InDelta(t, 1.0, sum, float64(len(tokens))*0.5e-6, "%v", tokens)
	}
}

func TestComputeIDFScenario(t *testing.T) {
	idf, err := ComputeIDF(scenario())
	require.NoError(t, err)
	assert.Equal(t, IDF{"a": 0.30103, "b": 0, "c": 0.30103}, idf)

	_, present := idf["zzz"]
	assert.False(t, present, "unseen terms are absent, not zero")
	v, present := idf["b"]
	assert.True(t, present, "a term in every document is present with weight 0")
	assert.Zero(t, v)
}

func TestComputeIDFEmptyCorpus(t *testing.T) {
	_, err := ComputeIDF(corpus.FromTokens())
	assert.True(t, errors.Is(err, apperrors.ErrEmptyCorpus))

	_, err = Build(context.Background(), corpus.FromTokens(), 2)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyCorpus))
}

func TestIDFDecreasesWithDocumentFrequency(t *testing.T) {
	c := corpus.FromTokens(
		[]string{"r", "m", "f"},
		[]string{"m", "f"},
		[]string{"f"},
		[]string{"f"},
	)
	idf, err := ComputeIDF(c)
	require.NoError(t, err)
	assert.Greater(t, idf["r"], idf["m"])
	assert.Greater(t, idf["m"], idf["f"])
	assert.Equal(t, Round(math.Log10(4.0/2.0)), idf["m"])
	assert.Zero(t, idf["f"])
}

func TestComputeTFIDFMissingIDFIsZero(t *testing.T) {
	tf := TermTable{1: {"known": 0.5, "unknown": 0.5}}
	out := ComputeTFIDF(tf, IDF{"known": 0.30103})
	assert.Equal(t, 0.150515, out[1]["known"])
	v, present := out[1]["unknown"]
	assert.True(t, present)
	assert.Zero(t, v)
}

func TestStagedRounding(t *testing.T) {
	// tf(a) = 1/4, idf(a) = log10(2). Rounding only the final product would
	// give 0.075257; rounding each stage gives 0.075258.
	c := corpus.FromTokens(
		[]string{"a", "b", "b", "b"},
		[]string{"b"},
	)
	m, err := Build(context.Background(), c, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.25, m.TF[1]["a"])
	assert.Equal(t, 0.30103, m.IDF["a"])
	assert.Equal(t, 0.075258, m.TFIDF[1]["a"])
	assert.NotEqual(t, Round(0.25*math.Log10(2)), m.TFIDF[1]["a"])
}

func TestBuildMatchesSequentialFunctions(t *testing.T) {
	c := scenario()
	m, err := Build(context.Background(), c, 3)
	require.NoError(t, err)

	idf, err := ComputeIDF(c)
	require.NoError(t, err)
	assert.Equal(t, 2, m.N)
	assert.Equal(t, idf, m.IDF)
	assert.Equal(t, ComputeTF([]string{"b", "c"}), m.TF[2])
	assert.Equal(t, Vector{"a": 0.200687, "b": 0}, m.TFIDF[1])
}

func TestBuildIncludesEmptyDocuments(t *testing.T) {
	c := corpus.FromTokens([]string{"a"}, nil)
	m, err := Build(context.Background(), c, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, m.TF.DocIDs())
	assert.Empty(t, m.TF[2])
	assert.Equal(t, 0.30103, m.IDF["a"])
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.666667, Round(2.0/3.0))
	assert.Equal(t, 0.30103, Round(math.Log10(2)))
	assert.Equal(t, 0.0, Round(0.0000004))
}

func TestTermTableRoundTrip(t *testing.T) {
	m, err := Build(context.Background(), scenario(), 2)
	require.NoError(t, err)

	for name, table := range map[string]TermTable{"tf": m.TF, "tfidf": m.TFIDF} {
		var first bytes.Buffer
		require.NoError(t, WriteTermTable(&first, table), name)

		back, err := ReadTermTable(bytes.NewReader(first.Bytes()))
		require.NoError(t, err, name)
		for id, vec := range table {
			for term, v := range vec {
				assert.Equal(t, v, back[id][term], "%s doc %d term %s", name, id, term)
			}
		}

		var second bytes.Buffer
		require.NoError(t, WriteTermTable(&second, back), name)
		assert.Equal(t, first.String(), second.String(), name)
	}
}

func TestWriteTermTableLayout(t *testing.T) {
	m, err := Build(context.Background(), scenario(), 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTermTable(&buf, m.TF))
	want := "Word,1,2\n" +
		"a,0.666667,0.000000\n" +
		"b,0.333333,0.500000\n" +
		"c,0.000000,0.500000\n"
	assert.Equal(t, want, buf.String())
}

func TestIDFRoundTrip(t *testing.T) {
	idf, err := ComputeIDF(scenario())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteIDF(&buf, idf))
	assert.Equal(t, "Word,IDF\na,0.301030\nb,0.000000\nc,0.301030\n", buf.String())

	back, err := ReadIDF(&buf)
	require.NoError(t, err)
	assert.Equal(t, idf, back)
}

func TestReadTableErrors(t *testing.T) {
	_, err := ReadTermTable(bytes.NewBufferString(""))
	assert.Error(t, err)
	_, err = ReadTermTable(bytes.NewBufferString("Word,x\n"))
	assert.Error(t, err)
	_, err = ReadTermTable(bytes.NewBufferString("Word,1\na,nan?\n"))
	assert.Error(t, err)
	_, err = ReadIDF(bytes.NewBufferString("Word,IDF\na,zz\n"))
	assert.Error(t, err)
}
