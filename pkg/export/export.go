// Package export writes chart datasets in formats other tools can read.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/evload/core/model"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Write encodes ds to w in format f.
func Write(w io.Writer, f Format, ds model.ChartDataset) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, ds)
	case FormatJSON:
		return WriteJSON(w, ds)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// WriteJSON writes the dataset, run id and creation time included.
func WriteJSON(w io.Writer, ds model.ChartDataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

// WriteCSV writes one line per aligned record, preceded by a header.
func WriteCSV(w io.Writer, ds model.ChartDataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "time", "managed_power_kw", "unmanaged_power_kw"}); err != nil {
		return err
	}
	for i, r := range ds.Records {
		rec := []string{
			strconv.Itoa(i),
			r.Time,
			strconv.FormatFloat(r.ManagedPowerKW, 'f', -1, 64),
			strconv.FormatFloat(r.UnmanagedPowerKW, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName returns the export file name for ds.
func FileName(ds model.ChartDataset, f Format) string {
	ts := ds.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("dataset_%s.%s", ts.UTC().Format("20060102T150405Z"), f)
}
