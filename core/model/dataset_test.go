package model

import (
	"reflect"
	"testing"
)

func TestNewRecordKeepsHeaderOrder(t *testing.T) {
	r := NewRecord([]string{"a", "b", "c"}, []string{"1", "2", "3"})
	if !reflect.DeepEqual(r.Fields(), []string{"a", "b", "c"}) {
		t.Fatalf("fields %v", r.Fields())
	}
	if !reflect.DeepEqual(r.Values(), []string{"1", "2", "3"}) {
		t.Fatalf("values %v", r.Values())
	}
	if v, ok := r.Get("b"); !ok || v != "2" {
		t.Fatalf("get b = %q %v", v, ok)
	}
}

func TestNewRecordMismatchedRow(t *testing.T) {
	short := NewRecord([]string{"a", "b", "c"}, []string{"1"})
	if short.Len() != 1 {
		t.Fatalf("short row len %d", short.Len())
	}
	if _, ok := short.Get("c"); ok {
		t.Fatalf("missing field should be unset")
	}
	long := NewRecord([]string{"a"}, []string{"1", "2"})
	if long.Len() != 1 || !reflect.DeepEqual(long.Values(), []string{"1"}) {
		t.Fatalf("extra values not dropped: %v", long.Values())
	}
}

func TestChartDatasetSeries(t *testing.T) {
	ds := ChartDataset{Records: []AlignedRecord{
		{Time: "00:00", ManagedPowerKW: 1, UnmanagedPowerKW: 2},
		{Time: "00:30", ManagedPowerKW: 3, UnmanagedPowerKW: 4},
	}}
	if !reflect.DeepEqual(ds.Labels(), []string{"00:00", "00:30"}) {
		t.Fatalf("labels %v", ds.Labels())
	}
	if !reflect.DeepEqual(ds.Managed(), []float64{1, 3}) || !reflect.DeepEqual(ds.Unmanaged(), []float64{2, 4}) {
		t.Fatalf("series mismatch")
	}
}
