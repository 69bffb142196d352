package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/simulator"
)

var mockCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run a local simulation endpoint for development",
	RunE:  runMock,
}

func init() {
	rootCmd.AddCommand(mockCmd)
}

func runMock(cmd *cobra.Command, args []string) error {
	s, err := start()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signalContext()
	defer stop()
	return simulator.NewServer(s.cfg.Mock).Start(ctx)
}
