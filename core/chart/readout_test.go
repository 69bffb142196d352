package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/model"
)

func TestReadout(t *testing.T) {
	ds := dataset(model.WindowSize)
	r, err := ReadoutAt(ds, 13)
	require.NoError(t, err)
	assert.Equal(t, Readout{Index: 13, Time: "06:30", ManagedPowerKW: 23, UnmanagedPowerKW: 23, DifferenceKW: 0}, r)

	r, err = ReadoutFor(ds, "23:30")
	require.NoError(t, err)
	assert.Equal(t, 47, r.Index)
	assert.InDelta(t, 57-22, r.DifferenceKW, 1e-9)

	_, err = ReadoutAt(ds, 48)
	assert.ErrorIs(t, err, ErrNoSample)
	_, err = ReadoutAt(ds, -1)
	assert.ErrorIs(t, err, ErrNoSample)
	_, err = ReadoutFor(ds, "24:00")
	assert.ErrorIs(t, err, ErrNoSample)
}

func TestSummarize(t *testing.T) {
	ds := model.ChartDataset{Records: []model.AlignedRecord{
		{Time: "00:00", ManagedPowerKW: 10, UnmanagedPowerKW: 5},
		{Time: "00:30", ManagedPowerKW: 12, UnmanagedPowerKW: 30},
		{Time: "01:00", ManagedPowerKW: 8, UnmanagedPowerKW: 7},
	}}
	s := Summarize(ds)
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, 12.0, s.PeakManagedKW)
	assert.Equal(t, "00:30", s.PeakManagedTime)
	assert.Equal(t, 30.0, s.PeakUnmanagedKW)
	assert.Equal(t, 18.0, s.PeakReductionKW)
	assert.InDelta(t, 10, s.MeanManagedKW, 1e-9)
	assert.InDelta(t, 15, s.ManagedEnergyKWh, 1e-9)
	assert.InDelta(t, 21, s.UnmanagedEnergyKWh, 1e-9)

	assert.Equal(t, Summary{}, Summarize(model.ChartDataset{}))
}
