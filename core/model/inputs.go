package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Vehicle describes one fleet vehicle from the vehicles input file.
type Vehicle struct {
	ID               string
	MaxChargeSpeedKW float64 // charger limit in kW
	EfficiencyKWhKm  float64 // consumption per driven kilometre
}

// Route is a daily trip: the vehicle returns at ReturnTime and leaves again
// the next day at DepartureTime.
type Route struct {
	VehicleID     string
	LengthKm      float64
	ReturnTime    string // HH:MM
	DepartureTime string // HH:MM
}

// HalfHourInterval converts an HH:MM clock value to its 30-minute slot index.
func HalfHourInterval(clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", clock, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", clock, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value out of range %q", clock)
	}
	return h*2 + m/30, nil
}
