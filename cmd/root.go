package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evload/app"
	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/monitoring"
	"github.com/kilianp07/evload/infra/logger"
	inframon "github.com/kilianp07/evload/infra/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "evload",
	Short:        "EV charging load simulation and chart viewer",
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// session is the state shared by every command: configuration plus the
// logging and error reporting set up from it.
type session struct {
	cfg    *config.Config
	closer io.Closer
}

func start() (*session, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	closer, err := logger.Setup(cfg.Logging.Options())
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logger.New("main").Errorf("sentry init: %v", err)
	} else {
		monitoring.Init(mon)
	}
	return &session{cfg: cfg, closer: closer}, nil
}

func (s *session) close() {
	monitoring.Flush(2 * time.Second)
	if err := s.closer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newService(cfg *config.Config) (*app.Service, func(), error) {
	svc, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}, nil
}
