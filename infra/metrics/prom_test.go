package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/evload/core/metrics"
)

func TestPromSink_RecordIngestion(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordIngestion(coremetrics.IngestionEvent{
		RunID: "r1", Outcome: coremetrics.OutcomeSuccess, Duration: 200 * time.Millisecond,
		ArchiveBytes: 2048, Rows: 48, PeakManagedKW: 40, PeakUnmanagedKW: 95.5,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordIngestion(coremetrics.IngestionEvent{RunID: "r2", Outcome: "alignment"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	expected := `
# HELP evload_ingestion_cycles_total Completed ingestion cycles by outcome
# TYPE evload_ingestion_cycles_total counter
evload_ingestion_cycles_total{outcome="alignment"} 1
evload_ingestion_cycles_total{outcome="success"} 1
`
	if err := testutil.CollectAndCompare(sink.cycles, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.peak.WithLabelValues("unmanaged")); v != 95.5 {
		t.Errorf("peak gauge = %v", v)
	}
	if v := testutil.ToFloat64(sink.archive); v != 2048 {
		t.Errorf("archive gauge = %v", v)
	}
}

func TestPromSink_StagesAndSubmissions(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordStage(coremetrics.StageTiming{Stage: "decode", Duration: time.Millisecond})
	_ = sink.RecordStage(coremetrics.StageTiming{Stage: "align", Failed: true})
	_ = sink.RecordSubmission(coremetrics.SubmissionEvent{StatusCode: 200, Latency: time.Second})
	_ = sink.RecordSubmission(coremetrics.SubmissionEvent{})

	if c := testutil.CollectAndCount(sink.stages); c != 2 {
		t.Errorf("expected 2 stage series, got %d", c)
	}
	expected := `
# HELP evload_simulation_requests_total Requests sent to the simulation service by HTTP status
# TYPE evload_simulation_requests_total counter
evload_simulation_requests_total{status="200"} 1
evload_simulation_requests_total{status="none"} 1
`
	if err := testutil.CollectAndCompare(sink.submissions, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	_ = first.RecordIngestion(coremetrics.IngestionEvent{Outcome: "decode"})
	_ = second.RecordIngestion(coremetrics.IngestionEvent{Outcome: "decode"})
	if v := testutil.ToFloat64(first.cycles.WithLabelValues("decode")); v != 2 {
		t.Fatalf("expected shared counter, got %v", v)
	}
}
