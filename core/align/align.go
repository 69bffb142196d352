// Package align pairs the managed and unmanaged result tables row by row
// into a fixed-length chart dataset.
//
// Pairing is positional: row i of one table is matched with row i of the
// other without comparing their time labels. Both tables are expected to
// come from the same simulation run with identical cadence; TimeMismatches
// reports the rows where that assumption does not hold.
package align

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kilianp07/evload/core/model"
)

var (
	// ErrOutOfRange is returned when a table is shorter than the window.
	ErrOutOfRange = errors.New("table shorter than alignment window")
	// ErrInvalidValue is returned when a required column is missing or not numeric.
	ErrInvalidValue = errors.New("invalid table value")
)

// Align builds a dataset of exactly window records. Record i takes its time
// label and managed power from managed.Records[i] and its unmanaged power
// from unmanaged.Records[i]. Rows past the window are ignored.
func Align(managed, unmanaged model.Table, window int) (model.ChartDataset, error) {
	if window <= 0 {
		return model.ChartDataset{}, fmt.Errorf("window must be positive, got %d", window)
	}
	if managed.Len() < window {
		return model.ChartDataset{}, fmt.Errorf("%w: %s has %d rows, need %d", ErrOutOfRange, managed.Name, managed.Len(), window)
	}
	if unmanaged.Len() < window {
		return model.ChartDataset{}, fmt.Errorf("%w: %s has %d rows, need %d", ErrOutOfRange, unmanaged.Name, unmanaged.Len(), window)
	}

	out := make([]model.AlignedRecord, window)
	for i := 0; i < window; i++ {
		m, u := managed.Records[i], unmanaged.Records[i]
		label, ok := m.Get(model.ColumnTimeOfDay)
		if !ok {
			return model.ChartDataset{}, fmt.Errorf("%w: %s row %d has no %s", ErrInvalidValue, managed.Name, i, model.ColumnTimeOfDay)
		}
		mp, err := power(managed.Name, i, m)
		if err != nil {
			return model.ChartDataset{}, err
		}
		up, err := power(unmanaged.Name, i, u)
		if err != nil {
			return model.ChartDataset{}, err
		}
		out[i] = model.AlignedRecord{Time: label, ManagedPowerKW: mp, UnmanagedPowerKW: up}
	}
	return model.ChartDataset{Records: out}, nil
}

// TimeMismatches returns the indices within the window where both tables
// carry different time labels. Rows missing from either table are skipped.
func TimeMismatches(managed, unmanaged model.Table, window int) []int {
	n := window
	if managed.Len() < n {
		n = managed.Len()
	}
	if unmanaged.Len() < n {
		n = unmanaged.Len()
	}
	var idx []int
	for i := 0; i < n; i++ {
		a, _ := managed.Records[i].Get(model.ColumnTimeOfDay)
		b, _ := unmanaged.Records[i].Get(model.ColumnTimeOfDay)
		if strings.TrimSpace(a) != strings.TrimSpace(b) {
			idx = append(idx, i)
		}
	}
	return idx
}

func power(table string, row int, r model.Record) (float64, error) {
	raw, ok := r.Get(model.ColumnTotalDemand)
	if !ok {
		return 0, fmt.Errorf("%w: %s row %d has no %s", ErrInvalidValue, table, row, model.ColumnTotalDemand)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s row %d %s=%q", ErrInvalidValue, table, row, model.ColumnTotalDemand, raw)
	}
	return v, nil
}
