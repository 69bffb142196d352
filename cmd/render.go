package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/pipeline"
	"github.com/kilianp07/evload/pkg/export"
)

var (
	renderArchive string
	renderExport  string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Chart a previously saved results archive",
	RunE:  renderSaved,
}

func init() {
	renderCmd.Flags().StringVar(&renderArchive, "archive", "", "saved results archive (defaults to the output directory copy)")
	renderCmd.Flags().StringVar(&renderExport, "export", "", "also export the dataset as csv or json")
	rootCmd.AddCommand(renderCmd)
}

func renderSaved(cmd *cobra.Command, args []string) error {
	s, err := start()
	if err != nil {
		return err
	}
	defer s.close()

	var format export.Format
	if renderExport != "" {
		if format, err = export.ParseFormat(renderExport); err != nil {
			return err
		}
	}
	path := renderArchive
	if path == "" {
		path = filepath.Join(s.cfg.Output.Dir, model.ArchiveFileName)
	}

	ctx, stop := signalContext()
	defer stop()
	svc, closeSvc, err := newService(s.cfg)
	if err != nil {
		return err
	}
	defer closeSvc()

	res, err := svc.IngestFile(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: %w", pipeline.Message(err), err)
	}
	out, err := svc.WriteChart(res.Dataset)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", out)

	if format != "" {
		dst := filepath.Join(s.cfg.Output.Dir, export.FileName(res.Dataset, format))
		f, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		if err := export.Write(f, format, res.Dataset); err != nil {
			_ = f.Close()
			return fmt.Errorf("export dataset: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dataset exported to %s\n", dst)
	}
	printSummary(cmd.OutOrStdout(), res.Dataset.RunID, res)
	return nil
}
