package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/core/chart"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/pipeline"
	"github.com/kilianp07/evload/core/upload"
)

var submitFiles = map[model.Slot]*string{
	model.SlotVehicles: new(string),
	model.SlotRoutes:   new(string),
	model.SlotBaseLoad: new(string),
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Run a simulation from three input files and render the chart",
	RunE:  submit,
}

func init() {
	submitCmd.Flags().StringVar(submitFiles[model.SlotVehicles], "vehicles", "", "vehicles CSV file")
	submitCmd.Flags().StringVar(submitFiles[model.SlotRoutes], "routes", "", "routes CSV file")
	submitCmd.Flags().StringVar(submitFiles[model.SlotBaseLoad], "base-load", "", "base load CSV file")
	rootCmd.AddCommand(submitCmd)
}

func submit(cmd *cobra.Command, args []string) error {
	s, err := start()
	if err != nil {
		return err
	}
	defer s.close()

	files := make(map[model.Slot]model.File, len(submitFiles))
	for slot, path := range submitFiles {
		if *path == "" {
			continue
		}
		data, err := os.ReadFile(*path)
		if err != nil {
			return fmt.Errorf("read %s file: %w", slot, err)
		}
		files[slot] = model.File{Name: filepath.Base(*path), Content: data}
	}

	ctx, stop := signalContext()
	defer stop()
	svc, closeSvc, err := newService(s.cfg)
	if err != nil {
		return err
	}
	defer closeSvc()

	out, err := svc.Submit(ctx, files)
	reportSaved(cmd.OutOrStdout(), cmd.ErrOrStderr(), out.Submission)
	if err != nil {
		return fmt.Errorf("%s: %w", pipeline.Message(err), err)
	}
	path, err := svc.WriteChart(out.Result.Dataset)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", path)
	printSummary(cmd.OutOrStdout(), out.Submission.RunID, out.Result)
	return nil
}

// reportSaved tells the user where the raw response went, including when
// the cycle failed after the response was saved.
func reportSaved(w, errW io.Writer, sub upload.Submission) {
	switch {
	case sub.SaveErr != nil:
		fmt.Fprintf(errW, "warning: raw results not saved: %v\n", sub.SaveErr)
	case sub.SavedPath != "":
		fmt.Fprintf(w, "Raw results saved to %s\n", sub.SavedPath)
	}
}

func printSummary(w io.Writer, runID string, res pipeline.Result) {
	sum := chart.Summarize(res.Dataset)
	fmt.Fprintf(w, "Run %s: %d samples\n", runID, sum.Samples)
	fmt.Fprintf(w, "  %-27s peak %8.2f kW at %s, mean %8.2f kW, energy %10.2f kWh\n",
		chart.ManagedSeriesName, sum.PeakManagedKW, sum.PeakManagedTime, sum.MeanManagedKW, sum.ManagedEnergyKWh)
	fmt.Fprintf(w, "  %-27s peak %8.2f kW at %s, mean %8.2f kW, energy %10.2f kWh\n",
		chart.UnmanagedSeriesName, sum.PeakUnmanagedKW, sum.PeakUnmanagedTime, sum.MeanUnmanagedKW, sum.UnmanagedEnergyKWh)
	fmt.Fprintf(w, "  Peak reduction %.2f kW\n", sum.PeakReductionKW)
	if n := len(res.Mismatches); n > 0 {
		fmt.Fprintf(w, "  %d rows with differing time labels\n", n)
	}
	for _, name := range res.Skipped {
		fmt.Fprintf(w, "  skipped archive entry %s\n", name)
	}
	for _, name := range res.Unreadable {
		fmt.Fprintf(w, "  unreadable archive entry %s\n", name)
	}
}
