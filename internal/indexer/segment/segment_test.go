package segment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/index"
)

func buildIndex(t *testing.T) *index.Index {
	t.Helper()
	c := corpus.FromTokens(
		[]string{"a", "a", "b"},
		[]string{"b", "c"},
		[]string{"модель", "c"},
	)
	ix, err := index.Build(context.Background(), c, 2)
	require.NoError(t, err)
	return ix
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	ix := buildIndex(t)

	name, err := NewWriter(dir).Write(ix)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, name))
	assert.NoFileExists(t, filepath.Join(dir, name+".tmp"))

	r, err := OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.Universe())
	assert.Equal(t, 4, r.Terms())

	ids, err := r.Search("c")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, ids)

	ids, err = r.Search("missing")
	require.NoError(t, err)
	assert.Empty(t, ids)

	back, err := r.Index()
	require.NoError(t, err)
	assert.Equal(t, ix.Entries(), back.Entries())
	assert.Equal(t, ix.Universe(), back.Universe())
}

func TestWriteRejectsEmptyCorpus(t *testing.T) {
	ix := index.FromEntries(nil, 0)
	_, err := NewWriter(t.TempDir()).Write(ix)
	assert.Error(t, err)
}

func TestWriteZeroTermIndexKeepsUniverse(t *testing.T) {
	dir := t.TempDir()
	name, err := NewWriter(dir).Write(index.FromEntries(nil, 3))
	require.NoError(t, err)

	r, err := OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.Terms())
	assert.Equal(t, 3, r.Universe())

	back, err := r.Index()
	require.NoError(t, err)
	assert.Equal(t, 3, back.Universe())
	assert.Equal(t, 0, back.Len())
}

func TestOpenReaderRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.spdx")
	require.NoError(t, os.WriteFile(path, make([]byte, HeaderSize+FooterSize), 0o644))

	_, err := OpenReader(path)
	assert.Error(t, err)
}

func TestOpenReaderDetectsDictionaryCorruption(t *testing.T) {
	dir := t.TempDir()
	name, err := NewWriter(dir).Write(buildIndex(t))
	require.NoError(t, err)
	path := filepath.Join(dir, name)

	r, err := OpenReader(path)
	require.NoError(t, err)
	dictOffset := r.header.DictOffset
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[dictOffset+2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = OpenReader(path)
	assert.ErrorContains(t, err, "checksum")
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	got, err := Latest(dir)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Latest(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "seg_100.spdx"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seg_200.spdx"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seg_300.spdx.tmp"), nil, 0o644))

	got, err = Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "seg_200.spdx"), got)
}
