package metrics

import "errors"

// MultiSink fans events out to several sinks. A failing sink does not keep
// the event from the others.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordIngestion forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordIngestion(ev IngestionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordIngestion(ev))
	}
	return errors.Join(errs...)
}

// RecordStage forwards stage timings to sinks able to record them.
func (m *MultiSink) RecordStage(st StageTiming) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(StageRecorder); ok {
			errs = append(errs, rec.RecordStage(st))
		}
	}
	return errors.Join(errs...)
}

// RecordSubmission forwards submission events to sinks able to record them.
func (m *MultiSink) RecordSubmission(ev SubmissionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SubmissionRecorder); ok {
			errs = append(errs, rec.RecordSubmission(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink holding a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
