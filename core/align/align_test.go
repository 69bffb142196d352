package align

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/model"
)

var header = []string{"IntervalIndex", "TimeOfDay", "BaseLoad_kW", "Total_Demand_kW"}

func table(name string, rows int, demand func(i int) string) model.Table {
	t := model.Table{Name: name, Header: header}
	for i := 0; i < rows; i++ {
		clock := fmt.Sprintf("%02d:%02d", (i/2)%24, (i%2)*30)
		t.Records = append(t.Records, model.NewRecord(header, []string{fmt.Sprint(i), clock, "10", demand(i)}))
	}
	return t
}

func TestAlignTakesLeadingWindow(t *testing.T) {
	managed := table(model.ManagedResultsFile, 60, func(i int) string { return fmt.Sprintf("%d.5", i) })
	unmanaged := table(model.UnmanagedResultsFile, 96, func(i int) string { return fmt.Sprintf("%d", 100+i) })

	ds, err := Align(managed, unmanaged, model.WindowSize)
	require.NoError(t, err)
	require.Equal(t, model.WindowSize, ds.Len())
	for i, rec := range ds.Records {
		wantTime, _ := managed.Records[i].Get(model.ColumnTimeOfDay)
		want := model.AlignedRecord{Time: wantTime, ManagedPowerKW: float64(i) + 0.5, UnmanagedPowerKW: float64(100 + i)}
		if diff := cmp.Diff(want, rec); diff != "" {
			t.Fatalf("record %d (-want +got):\n%s", i, diff)
		}
	}
	assert.Equal(t, "23:30", ds.Records[47].Time)
}

func TestAlignExactWindow(t *testing.T) {
	m := table("m", 48, func(int) string { return "1" })
	u := table("u", 48, func(int) string { return "2" })
	ds, err := Align(m, u, 48)
	require.NoError(t, err)
	assert.Equal(t, 48, ds.Len())
}

func TestAlignOutOfRange(t *testing.T) {
	long := table("long", 48, func(int) string { return "1" })
	short := table("short", 47, func(int) string { return "1" })

	_, err := Align(short, long, model.WindowSize)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = Align(long, short, model.WindowSize)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = Align(long, long, 0)
	assert.Error(t, err)
}

func TestAlignInvalidValues(t *testing.T) {
	good := table("good", 48, func(int) string { return "1" })
	bad := table("bad", 48, func(i int) string {
		if i == 7 {
			return "n/a"
		}
		return "1"
	})
	_, err := Align(good, bad, 48)
	assert.ErrorIs(t, err, ErrInvalidValue)

	noCol := model.Table{Name: "nocol", Header: []string{"TimeOfDay"}}
	for i := 0; i < 48; i++ {
		noCol.Records = append(noCol.Records, model.NewRecord(noCol.Header, []string{"00:00"}))
	}
	_, err = Align(noCol, good, 48)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestTimeMismatches(t *testing.T) {
	m := table("m", 50, func(int) string { return "1" })
	u := table("u", 50, func(int) string { return "1" })
	assert.Empty(t, TimeMismatches(m, u, 48))

	u.Records[3] = model.NewRecord(header, []string{"3", "09:00", "10", "1"})
	u.Records[49] = model.NewRecord(header, []string{"49", "09:00", "10", "1"})
	assert.Equal(t, []int{3}, TimeMismatches(m, u, 48))
	assert.Empty(t, TimeMismatches(m, table("short", 10, func(int) string { return "1" }), 48))
}
