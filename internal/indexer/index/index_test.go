package index

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
)

func scenario() *corpus.Corpus {
	return corpus.FromTokens(
		[]string{"a", "a", "b"},
		[]string{"b", "c"},
	)
}

func TestBuildScenario(t *testing.T) {
	ix, err := Build(context.Background(), scenario(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, ix.Universe())
	assert.Equal(t, []string{"a", "b", "c"}, ix.Terms())
	assert.Equal(t, []int{1}, ix.Postings("a"))
	assert.Equal(t, []int{1, 2}, ix.Postings("b"))
	assert.Equal(t, []int{2}, ix.Postings("c"))
	assert.Equal(t, 2, ix.DocFreq("b"))
}

func TestUnknownTermIsEmptyNotNil(t *testing.T) {
	ix, err := Build(context.Background(), scenario(), 1)
	require.NoError(t, err)

	got := ix.Postings("zzz")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, ix.DocFreq("zzz"))
}

func TestPostingsReturnsCopy(t *testing.T) {
	ix, err := Build(context.Background(), scenario(), 1)
	require.NoError(t, err)

	p := ix.Postings("b")
	p[0] = 99
	assert.Equal(t, []int{1, 2}, ix.Postings("b"))
}

func TestEmptyDocumentContributesNothing(t *testing.T) {
	c := corpus.FromTokens([]string{"x"}, nil, []string{"x", "", "y"})
	ix, err := Build(context.Background(), c, 4)
	require.NoError(t, err)

	assert.Equal(t, 3, ix.Universe())
	assert.Equal(t, []int{1, 3}, ix.Postings("x"))
	assert.Equal(t, []string{"x", "y"}, ix.Terms())
}

func TestPostingInvariantsOnLargerCorpus(t *testing.T) {
	vocab := []string{"alpha", "beta", "gamma", "delta", "eps"}
	docs := make([][]string, 50)
	for i := range docs {
		for j := 0; j <= i%7; j++ {
			docs[i] = append(docs[i], vocab[(i*j+i)%len(vocab)])
		}
	}
	c := corpus.FromTokens(docs...)
	ix, err := Build(context.Background(), c, 8)
	require.NoError(t, err)

	for _, term := range ix.Terms() {
		ids := ix.Postings(term)
		require.True(t, sort.IntsAreSorted(ids), term)
		for i := 1; i < len(ids); i++ {
			require.NotEqual(t, ids[i-1], ids[i], "duplicate id for %s", term)
		}
		for _, id := range ids {
			doc, ok := c.Document(id)
			require.True(t, ok)
			require.True(t, slices.Contains(doc.Tokens, term), "doc %d lacks %s", id, term)
		}
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, scenario(), 1)
	assert.Error(t, err)
}

func TestDictionaryRoundTrip(t *testing.T) {
	ix, err := Build(context.Background(), scenario(), 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDictionary(&buf, ix))
	assert.Equal(t, "a: 1\nb: 1, 2\nc: 2\n", buf.String())

	back, err := ReadDictionary(&buf, ix.Universe())
	require.NoError(t, err)
	assert.Equal(t, ix.Entries(), back.Entries())
}

func TestReadDictionaryRejectsGarbage(t *testing.T) {
	_, err := ReadDictionary(bytes.NewBufferString("no separator here\n"), 1)
	assert.Error(t, err)
	_, err = ReadDictionary(bytes.NewBufferString("a: 1, x\n"), 1)
	assert.Error(t, err)
}

func TestSortUnique(t *testing.T) {
	assert.Equal(t, []int{1, 2, 5}, SortUnique([]int{5, 1, 2, 5, 1}))
	assert.Equal(t, []int{}, SortUnique(nil))
}

func BenchmarkBuild(b *testing.B) {
	docs := make([][]string, 2000)
	for i := range docs {
		for j := 0; j < 200; j++ {
			docs[i] = append(docs[i], fmt.Sprintf("t%d", (i*31+j*7)%5000))
		}
	}
	c := corpus.FromTokens(docs...)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Build(context.Background(), c, 8); err != nil {
			b.Fatal(err)
		}
	}
}
