package model

import (
	"errors"
	"fmt"
	"strings"
)

// Slot identifies one of the three input files a simulation run requires.
type Slot string

const (
	SlotVehicles Slot = "vehicles"
	SlotRoutes   Slot = "routes"
	SlotBaseLoad Slot = "baseLoad"
)

// Slots lists every slot in submission order.
var Slots = []Slot{SlotVehicles, SlotRoutes, SlotBaseLoad}

// ErrUnknownSlot is returned when a slot name is not one of Slots.
var ErrUnknownSlot = errors.New("unknown input slot")

// ErrIncompleteSubmission is returned when a slot has no file attached.
var ErrIncompleteSubmission = errors.New("incomplete submission")

// ParseSlot accepts the canonical slot names plus the kebab/snake forms used
// on the command line ("base-load", "base_load").
func ParseSlot(s string) (Slot, error) {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(s)) {
	case "vehicles":
		return SlotVehicles, nil
	case "routes":
		return SlotRoutes, nil
	case "baseload":
		return SlotBaseLoad, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
	}
}

// PartName returns the multipart field name the remote simulation expects.
func (s Slot) PartName() string {
	switch s {
	case SlotVehicles:
		return "vehicles_file"
	case SlotRoutes:
		return "routes_file"
	case SlotBaseLoad:
		return "base_load_file"
	default:
		return ""
	}
}

func (s Slot) String() string { return string(s) }

// File is a user supplied input file.
type File struct {
	Name    string
	Content []byte
}

// Empty reports whether nothing was attached.
func (f File) Empty() bool { return len(f.Content) == 0 }

// SubmissionRequest carries the three input files of one simulation run.
// Build it with NewSubmissionRequest so that every slot is populated.
type SubmissionRequest struct {
	Vehicles File
	Routes   File
	BaseLoad File
}

// NewSubmissionRequest validates that all three files are present.
func NewSubmissionRequest(vehicles, routes, baseLoad File) (SubmissionRequest, error) {
	var missing []string
	if vehicles.Empty() {
		missing = append(missing, SlotVehicles.String())
	}
	if routes.Empty() {
		missing = append(missing, SlotRoutes.String())
	}
	if baseLoad.Empty() {
		missing = append(missing, SlotBaseLoad.String())
	}
	if len(missing) > 0 {
		return SubmissionRequest{}, fmt.Errorf("%w: missing %s", ErrIncompleteSubmission, strings.Join(missing, ", "))
	}
	return SubmissionRequest{Vehicles: vehicles, Routes: routes, BaseLoad: baseLoad}, nil
}

// File returns the file attached to slot.
func (r SubmissionRequest) File(s Slot) File {
	switch s {
	case SlotVehicles:
		return r.Vehicles
	case SlotRoutes:
		return r.Routes
	case SlotBaseLoad:
		return r.BaseLoad
	default:
		return File{}
	}
}
