package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/infra/logger"
)

// InfluxSink writes ingestion events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordIngestion writes one point per ingestion cycle.
func (s *InfluxSink) RecordIngestion(ev coremetrics.IngestionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("ingestion_cycle").
		AddTag("run_id", ev.RunID).
		AddTag("outcome", ev.Outcome).
		AddTag("stage", ev.Stage).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("archive_bytes", ev.ArchiveBytes).
		AddField("rows", ev.Rows).
		AddField("peak_managed_kw", round3(ev.PeakManagedKW)).
		AddField("peak_unmanaged_kw", round3(ev.PeakUnmanagedKW)).
		SetTime(pointTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStage writes the duration of a pipeline stage.
func (s *InfluxSink) RecordStage(st coremetrics.StageTiming) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("pipeline_stage").
		AddTag("run_id", st.RunID).
		AddTag("stage", st.Stage).
		AddTag("failed", strconv.FormatBool(st.Failed)).
		AddField("duration_ms", round3(st.Duration.Seconds()*1000)).
		SetTime(pointTime(st.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSubmission writes the simulation round trip.
func (s *InfluxSink) RecordSubmission(ev coremetrics.SubmissionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("simulation_request").
		AddTag("run_id", ev.RunID).
		AddTag("status", strconv.Itoa(ev.StatusCode)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("bytes", ev.Bytes).
		AddField("saved", ev.Saved).
		SetTime(pointTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func pointTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
