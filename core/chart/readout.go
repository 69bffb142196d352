package chart

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evload/core/model"
)

// ErrNoSample is returned when a readout is requested outside the dataset.
var ErrNoSample = errors.New("no sample at requested position")

// Readout is what the chart shows when the pointer hovers a time index.
type Readout struct {
	Index            int     `json:"index"`
	Time             string  `json:"time"`
	ManagedPowerKW   float64 `json:"managed_power_kw"`
	UnmanagedPowerKW float64 `json:"unmanaged_power_kw"`
	DifferenceKW     float64 `json:"difference_kw"`
}

// ReadoutAt returns the values at index.
func ReadoutAt(ds model.ChartDataset, index int) (Readout, error) {
	if index < 0 || index >= ds.Len() {
		return Readout{}, fmt.Errorf("%w: index %d of %d", ErrNoSample, index, ds.Len())
	}
	r := ds.Records[index]
	return Readout{
		Index:            index,
		Time:             r.Time,
		ManagedPowerKW:   r.ManagedPowerKW,
		UnmanagedPowerKW: r.UnmanagedPowerKW,
		DifferenceKW:     r.UnmanagedPowerKW - r.ManagedPowerKW,
	}, nil
}

// ReadoutFor returns the values at the first sample labelled label.
func ReadoutFor(ds model.ChartDataset, label string) (Readout, error) {
	for i, r := range ds.Records {
		if r.Time == label {
			return ReadoutAt(ds, i)
		}
	}
	return Readout{}, fmt.Errorf("%w: time %q", ErrNoSample, label)
}

// Summary condenses both series.
type Summary struct {
	Samples            int     `json:"samples"`
	PeakManagedKW      float64 `json:"peak_managed_kw"`
	PeakManagedTime    string  `json:"peak_managed_time"`
	PeakUnmanagedKW    float64 `json:"peak_unmanaged_kw"`
	PeakUnmanagedTime  string  `json:"peak_unmanaged_time"`
	MeanManagedKW      float64 `json:"mean_managed_kw"`
	MeanUnmanagedKW    float64 `json:"mean_unmanaged_kw"`
	PeakReductionKW    float64 `json:"peak_reduction_kw"`
	ManagedEnergyKWh   float64 `json:"managed_energy_kwh"`
	UnmanagedEnergyKWh float64 `json:"unmanaged_energy_kwh"`
}

// slotHours is the duration of one sample.
const slotHours = 0.5

// Summarize computes peaks, means and energy of both series.
func Summarize(ds model.ChartDataset) Summary {
	if ds.Len() == 0 {
		return Summary{}
	}
	managed, unmanaged := ds.Managed(), ds.Unmanaged()
	mi, ui := floats.MaxIdx(managed), floats.MaxIdx(unmanaged)
	return Summary{
		Samples:            ds.Len(),
		PeakManagedKW:      managed[mi],
		PeakManagedTime:    ds.Records[mi].Time,
		PeakUnmanagedKW:    unmanaged[ui],
		PeakUnmanagedTime:  ds.Records[ui].Time,
		MeanManagedKW:      stat.Mean(managed, nil),
		MeanUnmanagedKW:    stat.Mean(unmanaged, nil),
		PeakReductionKW:    unmanaged[ui] - managed[mi],
		ManagedEnergyKWh:   floats.Sum(managed) * slotHours,
		UnmanagedEnergyKWh: floats.Sum(unmanaged) * slotHours,
	}
}
