package searcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/tokenizer"
)

func TestReadQueries(t *testing.T) {
	got, err := ReadQueries(strings.NewReader("a & b\n\n  c | d  \n\t\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a & b", "c | d"}, got)
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	exportBuild(t, dir,
		[]string{"a", "b"},
		[]string{"b", "c"},
	)
	snap, err := LoadSnapshot(dir, tokenizer.Whitespace{})
	require.NoError(t, err)

	out := filepath.Join(dir, "queries")
	report, err := RunBatch(context.Background(), snap,
		[]string{"a | c", "b &"},
		[]string{"a", "zzz"},
		2, out)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Boolean: 2, BooleanFailed: 1, Vector: 2}, report)

	results, err := os.ReadFile(filepath.Join(out, BooleanResultsFile))
	require.NoError(t, err)
	text := string(results)
	assert.Contains(t, text, "Query: a | c\n→ Matching documents: [1, 2]\n")
	assert.Contains(t, text, "Query: b &\n→ Error: ")

	csv, err := os.ReadFile(filepath.Join(out, VectorResultsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "a,zzz", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1 1.000000,"), lines[1])
}

func TestRunBatchSkipsEmptyLists(t *testing.T) {
	dir := t.TempDir()
	exportBuild(t, dir, []string{"a"})
	snap, err := LoadSnapshot(dir, tokenizer.Whitespace{})
	require.NoError(t, err)

	out := filepath.Join(dir, "queries")
	report, err := RunBatch(context.Background(), snap, nil, nil, 1, out)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{}, report)
	_, err = os.Stat(filepath.Join(out, BooleanResultsFile))
	assert.True(t, os.IsNotExist(err))
}
