// Package simulator is a local implementation of the remote simulation
// service. It schedules fleet charging over two days at half-hour
// resolution, once spreading each vehicle's energy over its plug-in window
// and once charging at full rate on arrival, and packs both results into a
// zip archive.
package simulator

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/evload/core/archive"
	"github.com/kilianp07/evload/core/model"
)

const (
	// Intervals covers 48 hours at 30-minute resolution.
	Intervals = 96
	// DayIntervals is the number of intervals in one day.
	DayIntervals = 48
	// intervalHours is the length of one interval.
	intervalHours = 0.5
)

// Requirement is a route joined with its vehicle and the energy it needs.
type Requirement struct {
	Route             model.Route
	Vehicle           model.Vehicle
	ReturnInterval    int
	DepartureInterval int
	EnergyKWh         float64
}

// Schedule is the per-interval result of one charging strategy.
type Schedule struct {
	VehicleIDs []string
	BaseLoad   []float64
	// Demand and Charge are keyed by vehicle id.
	Demand  map[string][]float64
	Charge  map[string][]float64
	TotalEV []float64
	Total   []float64
}

// Result holds both schedules and the requirements they were built from.
type Result struct {
	Requirements []Requirement
	Managed      Schedule
	Unmanaged    Schedule
}

// Run simulates both charging strategies.
func Run(in Inputs) (Result, error) {
	if len(in.BaseLoad) == 0 {
		return Result{}, fmt.Errorf("%w: base load has no rows", ErrInvalidInput)
	}
	ids, byID := vehicleIndex(in.Vehicles)
	reqs, err := requirements(in.Routes, byID)
	if err != nil {
		return Result{}, err
	}
	base := tile(in.BaseLoad, Intervals)
	return Result{
		Requirements: reqs,
		Managed:      schedule(ids, base, reqs, true),
		Unmanaged:    schedule(ids, base, reqs, false),
	}, nil
}

func vehicleIndex(vs []model.Vehicle) ([]string, map[string]model.Vehicle) {
	ids := make([]string, 0, len(vs))
	byID := make(map[string]model.Vehicle, len(vs))
	for _, v := range vs {
		if _, ok := byID[v.ID]; ok {
			continue
		}
		ids = append(ids, v.ID)
		byID[v.ID] = v
	}
	return ids, byID
}

// requirements joins routes with vehicles. Routes for unknown vehicles are
// dropped. Departure is on the following day.
func requirements(routes []model.Route, byID map[string]model.Vehicle) ([]Requirement, error) {
	out := make([]Requirement, 0, len(routes))
	for _, rt := range routes {
		v, ok := byID[rt.VehicleID]
		if !ok {
			continue
		}
		ret, err := model.HalfHourInterval(rt.ReturnTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		dep, err := model.HalfHourInterval(rt.DepartureTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		out = append(out, Requirement{
			Route:             rt,
			Vehicle:           v,
			ReturnInterval:    ret,
			DepartureInterval: dep + DayIntervals,
			EnergyKWh:         rt.LengthKm * v.EfficiencyKWhKm,
		})
	}
	return out, nil
}

// tile repeats v until it is n long.
func tile(v []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v[i%len(v)]
	}
	return out
}

// schedule assigns each requirement's energy to the intervals between
// return and departure. Managed charging uses the lowest constant rate that
// still delivers the energy in time; unmanaged charging uses the highest
// the vehicle allows.
func schedule(ids []string, base []float64, reqs []Requirement, managed bool) Schedule {
	s := Schedule{
		VehicleIDs: ids,
		BaseLoad:   base,
		Demand:     make(map[string][]float64, len(ids)),
		Charge:     make(map[string][]float64, len(ids)),
		TotalEV:    make([]float64, Intervals),
		Total:      make([]float64, Intervals),
	}
	for _, id := range ids {
		s.Demand[id] = make([]float64, Intervals)
		s.Charge[id] = make([]float64, Intervals)
	}
	for _, r := range reqs {
		window := r.DepartureInterval - r.ReturnInterval + 1
		if window <= 0 {
			continue
		}
		rate := math.Min(r.Vehicle.MaxChargeSpeedKW, r.EnergyKWh)
		if managed {
			rate = math.Min(r.Vehicle.MaxChargeSpeedKW, r.EnergyKWh/(float64(window)*intervalHours))
		}
		demand, charge := s.Demand[r.Vehicle.ID], s.Charge[r.Vehicle.ID]
		assigned := 0.0
		for i := r.ReturnInterval; i <= r.DepartureInterval && i < Intervals; i++ {
			if assigned >= r.EnergyKWh {
				break
			}
			step := math.Min(rate*intervalHours, r.EnergyKWh-assigned)
			if i == r.ReturnInterval {
				charge[i] += step
			} else {
				charge[i] = charge[i-1] + step
			}
			demand[i] = rate
			assigned += step
		}
	}
	col := make([]float64, len(ids))
	for i := 0; i < Intervals; i++ {
		for j, id := range ids {
			col[j] = s.Demand[id][i]
		}
		s.TotalEV[i] = floats.Sum(col)
		s.Total[i] = base[i] + s.TotalEV[i]
	}
	return s
}

// TimeOfDay returns the HH:MM label of interval i.
func TimeOfDay(i int) string {
	return fmt.Sprintf("%02d:%02d", (i/2)%24, (i%2)*30)
}

// Files renders the result as the three archive entries.
func (r Result) Files() ([]model.ExtractedFile, error) {
	req, err := r.requirementsCSV()
	if err != nil {
		return nil, err
	}
	managed, err := r.Managed.csv()
	if err != nil {
		return nil, err
	}
	unmanaged, err := r.Unmanaged.csv()
	if err != nil {
		return nil, err
	}
	return []model.ExtractedFile{
		{Name: model.EnergyRequirementsFile, Content: req},
		{Name: model.ManagedResultsFile, Content: managed},
		{Name: model.UnmanagedResultsFile, Content: unmanaged},
	}, nil
}

// Archive packs the result into the zip returned by the service.
func (r Result) Archive() (model.ResultArchive, error) {
	files, err := r.Files()
	if err != nil {
		return nil, err
	}
	b, err := archive.Bytes(files...)
	if err != nil {
		return nil, err
	}
	return model.ResultArchive(b), nil
}

func (r Result) requirementsCSV() (string, error) {
	rows := [][]string{{
		ColVehicleID, ColRouteLength, ColReturnTime, ColDepartureTime,
		"ReturnInterval", "DepartureInterval", ColMaxChargeSpeed, ColEfficiency, "EnergyRequired_kWh",
	}}
	for _, q := range r.Requirements {
		rows = append(rows, []string{
			q.Route.VehicleID,
			num(q.Route.LengthKm),
			q.Route.ReturnTime,
			q.Route.DepartureTime,
			strconv.Itoa(q.ReturnInterval),
			strconv.Itoa(q.DepartureInterval),
			num(q.Vehicle.MaxChargeSpeedKW),
			num(q.Vehicle.EfficiencyKWhKm),
			num(q.EnergyKWh),
		})
	}
	return writeCSV(rows)
}

func (s Schedule) csv() (string, error) {
	header := []string{"IntervalIndex", model.ColumnTimeOfDay, "BaseLoad_kW"}
	for _, id := range s.VehicleIDs {
		header = append(header, "ChargingDemand_Vehicle"+id+"_kW", "ChargeAmount_Vehicle"+id+"_kWh")
	}
	header = append(header, "Total_EV_Demand_kW", model.ColumnTotalDemand)
	rows := [][]string{header}
	for i := 0; i < Intervals; i++ {
		row := []string{strconv.Itoa(i), TimeOfDay(i), num(s.BaseLoad[i])}
		for _, id := range s.VehicleIDs {
			row = append(row, num(s.Demand[id][i]), num(s.Charge[id][i]))
		}
		row = append(row, num(s.TotalEV[i]), num(s.Total[i]))
		rows = append(rows, row)
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// num rounds to two decimals and always prints a fractional part.
func num(v float64) string {
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
