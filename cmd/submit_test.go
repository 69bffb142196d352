package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/pipeline"
	"github.com/kilianp07/evload/core/upload"
)

func TestReportSaved(t *testing.T) {
	cases := []struct {
		name    string
		sub     upload.Submission
		out     string
		warning string
	}{
		{"saved", upload.Submission{RunID: "r", SavedPath: "out/simulation_results.zip"}, "Raw results saved to out/simulation_results.zip\n", ""},
		{"save failed", upload.Submission{RunID: "r", SaveErr: errors.New("disk full")}, "", "warning: raw results not saved: disk full\n"},
		{"never reached simulation", upload.Submission{RunID: "r"}, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			reportSaved(&out, &errOut, tc.sub)
			assert.Equal(t, tc.out, out.String())
			assert.Equal(t, tc.warning, errOut.String())
		})
	}
}

func TestPrintSummaryListsUnreadableEntries(t *testing.T) {
	var out bytes.Buffer
	res := pipeline.Result{
		Dataset:    model.ChartDataset{Records: []model.AlignedRecord{{Time: "00:00", ManagedPowerKW: 1, UnmanagedPowerKW: 2}}},
		Skipped:    []string{"readme.txt"},
		Unreadable: []string{"notes.csv"},
	}
	printSummary(&out, "r", res)
	assert.Contains(t, out.String(), "Run r: 1 samples")
	assert.Contains(t, out.String(), "skipped archive entry readme.txt")
	assert.Contains(t, out.String(), "unreadable archive entry notes.csv")
}
