package pipeline

import (
	"errors"
	"fmt"
)

// Fault kinds. A failed cycle always wraps exactly one of them.
var (
	ErrSubmission = errors.New("submission fault")
	ErrTransport  = errors.New("transport fault")
	ErrDecode     = errors.New("decode fault")
	ErrAlignment  = errors.New("alignment fault")
)

// Stage names used in errors, logs and metrics.
const (
	StageSubmit  = "submit"
	StageDecode  = "decode"
	StageParse   = "parse"
	StageAlign   = "align"
	StagePublish = "publish"
)

// StageError records which stage stopped a cycle and why.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the fault kind and the underlying cause to errors.Is.
func (e *StageError) Unwrap() []error { return []error{e.Kind, e.Err} }

func fail(stage string, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf returns a short label for the fault kind of err, or "unknown".
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrSubmission):
		return "submission"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrAlignment):
		return "alignment"
	default:
		return "unknown"
	}
}

// Message returns the user-facing description of err's fault kind.
func Message(err error) string {
	switch KindOf(err) {
	case "submission":
		return "Please upload all required files."
	case "transport":
		return "The simulation service could not be reached or rejected the request."
	case "decode":
		return "The simulation results could not be read."
	case "alignment":
		return "The simulation results do not cover a full day."
	default:
		return "The simulation failed."
	}
}
