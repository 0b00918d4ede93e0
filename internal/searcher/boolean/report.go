package boolean

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteResults writes one block per query:
//
//	Query: <expr>
//	→ Matching documents: [1, 2]
//
// A failed query prints "→ Error: <message>" in place of the list.
func WriteResults(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(bw, "Query: %s\n→ Error: %v\n\n", r.Query, r.Err)
			continue
		}
		fmt.Fprintf(bw, "Query: %s\n→ Matching documents: %s\n\n", r.Query, FormatIDs(r.Docs))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing boolean results: %w", err)
	}
	return nil
}

// FormatIDs renders ids as "[1, 2, 3]".
func FormatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
