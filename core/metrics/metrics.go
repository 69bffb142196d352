package metrics

import "time"

// Outcome values recorded for an ingestion cycle.
const (
	OutcomeSuccess = "success"
)

// IngestionEvent summarises one submit-to-chart cycle.
type IngestionEvent struct {
	RunID string
	// Outcome is OutcomeSuccess or the fault kind that stopped the cycle.
	Outcome string
	// Stage is the last stage reached.
	Stage           string
	Duration        time.Duration
	ArchiveBytes    int
	Rows            int
	PeakManagedKW   float64
	PeakUnmanagedKW float64
	Time            time.Time
}

// MetricsSink records ingestion cycles for observability purposes.
type MetricsSink interface {
	RecordIngestion(ev IngestionEvent) error
}

// StageTiming is the duration of a single pipeline stage.
type StageTiming struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Failed   bool
	Time     time.Time
}

// StageRecorder records per-stage timings.
type StageRecorder interface {
	RecordStage(st StageTiming) error
}

// SubmissionEvent captures the remote simulation round trip.
type SubmissionEvent struct {
	RunID      string
	StatusCode int
	Bytes      int
	Latency    time.Duration
	Saved      bool
	Time       time.Time
}

// SubmissionRecorder records remote round trips.
type SubmissionRecorder interface {
	RecordSubmission(ev SubmissionEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordIngestion(IngestionEvent) error   { return nil }
func (NopSink) RecordStage(StageTiming) error          { return nil }
func (NopSink) RecordSubmission(SubmissionEvent) error { return nil }
