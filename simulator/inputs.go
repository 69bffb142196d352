package simulator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/tabular"
)

// ErrInvalidInput is returned for input files the simulation cannot use.
var ErrInvalidInput = errors.New("invalid simulation input")

// Input column names.
const (
	ColVehicleID      = "VehicleID"
	ColMaxChargeSpeed = "MaxChargeSpeed_kW"
	ColEfficiency     = "Efficiency_kWh_km"
	ColRouteLength    = "RouteLength_km"
	ColReturnTime     = "ReturnTime"
	ColDepartureTime  = "DepartureTime"
	ColLoad           = "Load_kW"
)

// Inputs are the decoded contents of the three submitted files.
type Inputs struct {
	Vehicles []model.Vehicle
	Routes   []model.Route
	BaseLoad []float64
}

// ParseInputs decodes a submission.
func ParseInputs(req model.SubmissionRequest) (Inputs, error) {
	var in Inputs
	var err error
	if in.Vehicles, err = ParseVehicles(string(req.Vehicles.Content)); err != nil {
		return Inputs{}, err
	}
	if in.Routes, err = ParseRoutes(string(req.Routes.Content)); err != nil {
		return Inputs{}, err
	}
	if in.BaseLoad, err = ParseBaseLoad(string(req.BaseLoad.Content)); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

// ParseVehicles decodes the vehicles file.
func ParseVehicles(text string) ([]model.Vehicle, error) {
	t, err := table("vehicles", text, ColVehicleID, ColMaxChargeSpeed, ColEfficiency)
	if err != nil {
		return nil, err
	}
	out := make([]model.Vehicle, 0, t.Len())
	for i, r := range t.Records {
		v := model.Vehicle{ID: get(r, ColVehicleID)}
		if v.MaxChargeSpeedKW, err = number("vehicles", i, r, ColMaxChargeSpeed); err != nil {
			return nil, err
		}
		if v.EfficiencyKWhKm, err = number("vehicles", i, r, ColEfficiency); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseRoutes decodes the routes file. Clock values are checked here so
// that scheduling never sees an unusable interval.
func ParseRoutes(text string) ([]model.Route, error) {
	t, err := table("routes", text, ColVehicleID, ColRouteLength, ColReturnTime, ColDepartureTime)
	if err != nil {
		return nil, err
	}
	out := make([]model.Route, 0, t.Len())
	for i, r := range t.Records {
		rt := model.Route{
			VehicleID:     get(r, ColVehicleID),
			ReturnTime:    get(r, ColReturnTime),
			DepartureTime: get(r, ColDepartureTime),
		}
		if rt.LengthKm, err = number("routes", i, r, ColRouteLength); err != nil {
			return nil, err
		}
		for _, clock := range []string{rt.ReturnTime, rt.DepartureTime} {
			if _, err := model.HalfHourInterval(clock); err != nil {
				return nil, fmt.Errorf("%w: routes row %d: %v", ErrInvalidInput, i+1, err)
			}
		}
		out = append(out, rt)
	}
	return out, nil
}

// ParseBaseLoad decodes the base load profile.
func ParseBaseLoad(text string) ([]float64, error) {
	t, err := table("base load", text, ColLoad)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: base load has no rows", ErrInvalidInput)
	}
	out := make([]float64, t.Len())
	for i, r := range t.Records {
		if out[i], err = number("base load", i, r, ColLoad); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func table(name, text string, required ...string) (model.Table, error) {
	t, err := tabular.Parse(name, text)
	if err != nil {
		return model.Table{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	have := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		have[h] = true
	}
	for _, col := range required {
		if !have[col] {
			return model.Table{}, fmt.Errorf("%w: %s is missing column %s", ErrInvalidInput, name, col)
		}
	}
	return t, nil
}

func number(name string, row int, r model.Record, col string) (float64, error) {
	v, err := strconv.ParseFloat(get(r, col), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s row %d: %s is not a number", ErrInvalidInput, name, row+1, col)
	}
	return v, nil
}

func get(r model.Record, col string) string {
	v, _ := r.Get(col)
	return strings.TrimSpace(v)
}
