package vsm

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// FormatValue renders v with exactly Precision decimals.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', Precision, 64)
}

// WriteTermTable writes t as CSV with one row per term (ascending) and one
// column per document id (ascending). Missing combinations are written as 0.
func WriteTermTable(w io.Writer, t TermTable) error {
	ids := t.DocIDs()
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(ids)+1)
	header = append(header, "Word")
	for _, id := range ids {
		header = append(header, strconv.Itoa(id))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, term := range t.Terms() {
		row := make([]string, 0, len(ids)+1)
		row = append(row, term)
		for _, id := range ids {
			row = append(row, FormatValue(t[id][term]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing table row %q: %w", term, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTermTable parses the WriteTermTable format. Every cell is stored,
// zeros included, so writing the result again reproduces the input.
func ReadTermTable(r io.Reader) (TermTable, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading table: missing header")
	}
	header := records[0]
	ids := make([]int, len(header)-1)
	t := make(TermTable, len(ids))
	for i, col := range header[1:] {
		id, err := strconv.Atoi(col)
		if err != nil {
			return nil, fmt.Errorf("table header column %d: bad document id %q", i+1, col)
		}
		ids[i] = id
		t[id] = Vector{}
	}
	for line, row := range records[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("table row %d: expected %d columns, got %d", line+2, len(header), len(row))
		}
		term := row[0]
		for i, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("table row %d (%q): bad value %q: %w", line+2, term, cell, err)
			}
			t[ids[i]][term] = v
		}
	}
	return t, nil
}

// WriteIDF writes the IDF table as "Word,IDF" CSV, terms ascending.
func WriteIDF(w io.Writer, idf IDF) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Word", "IDF"}); err != nil {
		return fmt.Errorf("writing idf header: %w", err)
	}
	for _, term := range idf.Terms() {
		if err := cw.Write([]string{term, FormatValue(idf[term])}); err != nil {
			return fmt.Errorf("writing idf row %q: %w", term, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadIDF parses the WriteIDF format. Zero-valued rows are kept: a term
// occurring in every document is present with weight 0.
func ReadIDF(r io.Reader) (IDF, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading idf: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading idf: missing header")
	}
	idf := make(IDF, len(records)-1)
	for line, row := range records[1:] {
		if len(row) != 2 {
			return nil, fmt.Errorf("idf row %d: expected 2 columns, got %d", line+2, len(row))
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("idf row %d (%q): %w", line+2, row[0], err)
		}
		idf[row[0]] = v
	}
	return idf, nil
}
