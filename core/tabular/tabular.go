// Package tabular turns delimited text into header-keyed records. Values
// are kept as text; numeric interpretation is left to consumers.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kilianp07/evload/core/model"
)

var (
	// ErrEmpty is returned when the text holds no header line.
	ErrEmpty = errors.New("table has no header")
	// ErrMalformed wraps read errors reported by the CSV reader.
	ErrMalformed = errors.New("malformed table")
)

const bom = "\ufeff"

// Parse decodes text into a table named name. The first non-blank line is
// the header; repeated header names get a numeric suffix ("A", "A_1").
// Quotes are read leniently: a stray quote inside a field is kept as text.
// Rows whose column count differs from the header are kept: missing
// trailing fields stay unset, surplus values are dropped, and each such row
// is listed in Table.Issues.
func Parse(name, text string) (model.Table, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, bom)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	t := model.Table{Name: name}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Table{}, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
		}
		if blank(row) {
			continue
		}
		if t.Header == nil {
			t.Header = uniqueHeader(row)
			continue
		}
		if len(row) != len(t.Header) {
			line, _ := r.FieldPos(0)
			t.Issues = append(t.Issues, model.RowIssue{Line: line, Want: len(t.Header), Got: len(row)})
		}
		t.Records = append(t.Records, model.NewRecord(t.Header, row))
	}
	if t.Header == nil {
		return model.Table{}, fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	return t, nil
}

// ParseFiles parses every extracted file and indexes the tables by name. A
// file that fails to parse is left out of the map and its error joined into
// the returned error; the other files are still parsed.
func ParseFiles(files []model.ExtractedFile) (map[string]model.Table, error) {
	out := make(map[string]model.Table, len(files))
	var errs []error
	for _, f := range files {
		t, err := Parse(f.Name, f.Content)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[f.Name] = t
	}
	return out, errors.Join(errs...)
}

func uniqueHeader(row []string) []string {
	seen := make(map[string]bool, len(row))
	for _, f := range row {
		seen[f] = true
	}
	out := make([]string, len(row))
	used := make(map[string]int, len(row))
	for i, f := range row {
		n := used[f]
		used[f]++
		if n == 0 {
			out[i] = f
			continue
		}
		name := fmt.Sprintf("%s_%d", f, n)
		for seen[name] {
			n++
			name = fmt.Sprintf("%s_%d", f, n)
		}
		used[f] = n + 1
		seen[name] = true
		out[i] = name
	}
	return out
}

func blank(row []string) bool {
	return len(row) == 1 && strings.TrimSpace(row[0]) == ""
}
