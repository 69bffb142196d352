// Package app wires configuration, infrastructure and the ingestion pipeline
// into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kilianp07/evload/api/viewer"
	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/chart"
	coremetrics "github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/pipeline"
	"github.com/kilianp07/evload/core/upload"
	"github.com/kilianp07/evload/infra/logger"
	"github.com/kilianp07/evload/infra/metrics"
	"github.com/kilianp07/evload/infra/mqtt"
	"github.com/kilianp07/evload/infra/simclient"
	"github.com/kilianp07/evload/infra/storage"
)

// forwardDrain bounds how long Close waits for queued results to be published.
const forwardDrain = 5 * time.Second

// Service owns one upload coordinator, the pipeline runner and the surface
// they publish to.
type Service struct {
	cfg         *config.Config
	Coordinator *upload.Coordinator
	Runner      *pipeline.Runner
	Surface     *pipeline.Surface
	Viewer      *viewer.Handler

	sink      coremetrics.MetricsSink
	publisher mqtt.Publisher
	paho      *mqtt.PahoClient
	log       logger.Logger

	fwdCancel context.CancelFunc
	fwdWG     sync.WaitGroup
	closeOnce sync.Once
}

// Option customises a Service.
type Option func(*options)

type options struct {
	sim       upload.Simulator
	publisher mqtt.Publisher
	sink      coremetrics.MetricsSink
}

// WithSimulator replaces the HTTP simulation client.
func WithSimulator(sim upload.Simulator) Option { return func(o *options) { o.sim = sim } }

// WithPublisher forwards results to pub instead of the configured broker.
func WithPublisher(pub mqtt.Publisher) Option { return func(o *options) { o.publisher = pub } }

// WithMetricsSink replaces the configured metrics sinks.
func WithMetricsSink(s coremetrics.MetricsSink) Option { return func(o *options) { o.sink = s } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	log := logger.New("service")

	sink := o.sink
	if sink == nil {
		var err error
		if sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}

	sim := o.sim
	if sim == nil {
		sim = simclient.New(cfg.Simulator)
	}
	coordOpts := []upload.Option{upload.WithLogger(logger.New("upload"))}
	if rec, ok := sink.(coremetrics.SubmissionRecorder); ok {
		coordOpts = append(coordOpts, upload.WithMetrics(rec))
	}
	coord := upload.New(sim, storage.NewFileSaver(cfg.Output.Dir), coordOpts...)

	surface := pipeline.NewSurface()
	runner := pipeline.NewRunner(coord, surface,
		pipeline.WithRunnerLogger(logger.New("pipeline")),
		pipeline.WithSink(sink),
		pipeline.WithWindow(cfg.Pipeline.Window),
	)

	format, err := chart.ParseFormat(cfg.Output.ChartFormat)
	if err != nil {
		closeSink(sink)
		return nil, err
	}
	svc := &Service{
		cfg:         cfg,
		Coordinator: coord,
		Runner:      runner,
		Surface:     surface,
		sink:        sink,
		publisher:   o.publisher,
		log:         log,
	}
	svc.Viewer = viewer.New(coord, runner, surface,
		viewer.WithLogger(logger.New("viewer")),
		viewer.WithChart(format, svc.ChartOptions()),
		viewer.WithMaxUpload(int64(cfg.Viewer.MaxUploadMB)<<20),
		viewer.WithMetrics(metrics.Handler(nil)),
	)

	if svc.publisher == nil && cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			closeSink(sink)
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.paho = client
		svc.publisher = client
	}
	if svc.publisher != nil {
		svc.forward()
	}
	return svc, nil
}

func (s *Service) forward() {
	ctx, cancel := context.WithCancel(context.Background())
	s.fwdCancel = cancel
	events := s.Surface.Subscribe()
	s.fwdWG.Add(1)
	go func() {
		defer s.fwdWG.Done()
		mqtt.Forward(ctx, s.publisher, events, logger.New("mqtt-forward"))
	}()
}

// ChartOptions returns the configured chart layout.
func (s *Service) ChartOptions() chart.Options {
	return chart.Options{
		Width:  s.cfg.Chart.Width,
		Height: s.cfg.Chart.Height,
		Step:   s.cfg.Chart.StepEnabled(),
		Title:  s.cfg.Chart.Title,
	}
}

// Submit registers files and runs one cycle. Slots absent from files keep
// any earlier registration.
func (s *Service) Submit(ctx context.Context, files map[model.Slot]model.File) (pipeline.Outcome, error) {
	for slot, f := range files {
		if err := s.Coordinator.RegisterFile(slot, f); err != nil {
			return pipeline.Outcome{}, err
		}
	}
	return s.Runner.Run(ctx)
}

// IngestFile runs the decode chain over an archive saved on disk.
func (s *Service) IngestFile(ctx context.Context, path string) (pipeline.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("read archive: %w", err)
	}
	return s.Runner.Ingest(ctx, model.ResultArchive(data))
}

// WriteChart renders ds to the configured output file and returns its path.
func (s *Service) WriteChart(ds model.ChartDataset) (string, error) {
	format, err := chart.ParseFormat(s.cfg.Output.ChartFormat)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.cfg.Output.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.cfg.Output.Dir, fmt.Sprintf("%s.%s", s.cfg.Output.ChartName, format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart: %w", err)
	}
	if err := chart.Render(ds, format, s.ChartOptions(), f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	s.log.Infof("chart written to %s", path)
	return path, nil
}

// Serve runs the viewer, and the metrics server when configured, until ctx
// is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	if addr := s.cfg.Metrics.PrometheusAddress; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := &http.Server{
		Addr:              s.cfg.Viewer.Address,
		Handler:           s.Viewer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("viewer shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("viewer listening on %s", s.cfg.Viewer.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops forwarding once queued events are published and releases
// broker and metrics connections.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.Surface.Close()
		if s.fwdCancel != nil {
			done := make(chan struct{})
			go func() {
				s.fwdWG.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(forwardDrain):
				s.log.Warnf("mqtt forwarding did not drain within %s", forwardDrain)
			}
			s.fwdCancel()
		}
		if s.paho != nil {
			s.paho.Disconnect()
		}
		closeSink(s.sink)
	})
	return nil
}

// closeSink releases sinks holding a connection, such as the Influx client.
func closeSink(sink coremetrics.MetricsSink) {
	if c, ok := sink.(interface{ Close() }); ok {
		c.Close()
	}
}
