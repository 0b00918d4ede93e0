package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/index"
)

// Reader gives random access to the posting lists of one segment file.
type Reader struct {
	file   *os.File
	header Header
	dict   []DictEntry
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment %s: %w", filepath.Base(path), err)
	}
	return r, nil
}

func newReader(f *os.File) (*Reader, error) {
	hb := make([]byte, HeaderSize)
	if _, err := f.ReadAt(hb, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	h := Header{
		Magic:      binary.LittleEndian.Uint32(hb[0:4]),
		Version:    binary.LittleEndian.Uint32(hb[4:8]),
		TermCount:  binary.LittleEndian.Uint32(hb[8:12]),
		Universe:   binary.LittleEndian.Uint32(hb[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(hb[16:24])),
		DictOffset: int64(binary.LittleEndian.Uint64(hb[24:32])),
		DictSize:   int64(binary.LittleEndian.Uint64(hb[32:40])),
		PostOffset: int64(binary.LittleEndian.Uint64(hb[40:48])),
		PostSize:   int64(binary.LittleEndian.Uint64(hb[48:56])),
	}
	if h.Magic != MagicBytes {
		return nil, fmt.Errorf("bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", h.Version)
	}

	dictBytes := make([]byte, h.DictSize)
	if _, err := f.ReadAt(dictBytes, h.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, h.DictOffset+h.DictSize); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	if sum := binary.LittleEndian.Uint32(footer[0:4]); sum != crc32.ChecksumIEEE(dictBytes) {
		return nil, fmt.Errorf("dictionary checksum mismatch")
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	return &Reader{file: f, header: h, dict: dict}, nil
}

// Search returns the posting list for term, or an empty list if the
// segment does not contain it.
func (r *Reader) Search(term string) ([]int, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return []int{}, nil
	}
	return r.read(r.dict[i])
}

func (r *Reader) read(entry DictEntry) ([]int, error) {
	buf := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(buf, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w", entry.Term, err)
	}
	var ids []int
	if err := json.Unmarshal(buf, &ids); err != nil {
		return nil, fmt.Errorf("parsing postings for %q: %w", entry.Term, err)
	}
	return ids, nil
}

// Index materializes the whole segment as an in-memory index.
func (r *Reader) Index() (*index.Index, error) {
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		ids, err := r.read(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.TermEntry{Term: d.Term, DocIDs: ids})
	}
	return index.FromEntries(entries, int(r.header.Universe)), nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) Universe() int {
	return int(r.header.Universe)
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// Latest returns the path of the newest segment in dir, or "" if none.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading segment directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Extension) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
