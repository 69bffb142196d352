//go:build integration

package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	coremetrics "github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/internal/testutil"
)

func TestInfluxSinkContainer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	in, cleanup, err := testutil.StartInflux(ctx)
	if err != nil {
		t.Skipf("influx unavailable: %v", err)
	}
	defer cleanup()

	sink := NewInfluxSinkWithFallback(in.URL, in.Token, in.Org, in.Bucket)
	if _, ok := sink.(*InfluxSink); !ok {
		t.Fatalf("expected live influx sink, got %T", sink)
	}
	defer sink.(*InfluxSink).Close()

	now := time.Now()
	if err := sink.RecordIngestion(coremetrics.IngestionEvent{
		RunID: "it-1", Outcome: coremetrics.OutcomeSuccess, Stage: "publish",
		Duration: 120 * time.Millisecond, Rows: 48, PeakManagedKW: 12.5, Time: now,
	}); err != nil {
		t.Fatalf("record ingestion: %v", err)
	}

	client := influxdb2.NewClient(in.URL, in.Token)
	defer client.Close()
	flux := fmt.Sprintf(`from(bucket:"%s") |> range(start:-5m) |> filter(fn:(r) => r._measurement == "ingestion_cycle" and r._field == "rows")`, in.Bucket)
	res, err := client.QueryAPI(in.Org).Query(ctx, flux)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer res.Close()
	found := false
	for res.Next() {
		rec := res.Record()
		if rec.ValueByKey("run_id") == "it-1" {
			found = true
			if v, ok := rec.Value().(int64); !ok || v != 48 {
				t.Fatalf("unexpected rows value %v", rec.Value())
			}
		}
	}
	if res.Err() != nil {
		t.Fatalf("query result: %v", res.Err())
	}
	if !found {
		t.Fatalf("ingestion point not found")
	}
}
