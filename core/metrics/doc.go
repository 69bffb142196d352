// Package metrics defines the events recorded for each ingestion cycle and
// the sink interfaces that persist them. Optional recorders (StageRecorder,
// SubmissionRecorder) are detected by type assertion so a sink only
// implements what it supports. Concrete sinks are registered by
// infra/metrics and selected from configuration with NewMetricsSink; several
// configured sinks are combined into a MultiSink.
package metrics
