package cmd

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload form and chart viewer",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	s, err := start()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signalContext()
	defer stop()

	svc, closeSvc, err := newService(s.cfg)
	if err != nil {
		return err
	}
	defer closeSvc()
	return svc.Serve(ctx)
}
