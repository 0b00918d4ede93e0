package index

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteDictionary writes one "term: id1, id2" line per term, terms ascending.
func WriteDictionary(w io.Writer, ix *Index) error {
	bw := bufio.NewWriter(w)
	for _, e := range ix.Entries() {
		ids := make([]string, len(e.DocIDs))
		for i, id := range e.DocIDs {
			ids[i] = strconv.Itoa(id)
		}
		if _, err := fmt.Fprintf(bw, "%s: %s\n", e.Term, strings.Join(ids, ", ")); err != nil {
			return fmt.Errorf("writing dictionary line for %q: %w", e.Term, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing dictionary: %w", err)
	}
	return nil
}

// ReadDictionary parses the WriteDictionary format. The text format does
// not carry N, so the universe must be supplied.
func ReadDictionary(r io.Reader, universe int) (*Index, error) {
	var entries []TermEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		sep := strings.LastIndex(text, ": ")
		if sep < 0 {
			return nil, fmt.Errorf("dictionary line %d: missing \": \" separator", line)
		}
		entry := TermEntry{Term: text[:sep]}
		for _, field := range strings.Split(text[sep+2:], ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("dictionary line %d: bad document id %q: %w", line, field, err)
			}
			entry.DocIDs = append(entry.DocIDs, id)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	return FromEntries(entries, universe), nil
}
