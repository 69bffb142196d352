package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/infra/logger"
)

// maxUpload bounds the multipart form kept in memory.
const maxUpload = 32 << 20

// Server exposes the simulation over HTTP with the same contract as the
// remote service: POST /api/simulate with three multipart files, answered
// with a zip archive.
type Server struct {
	addr     string
	log      logger.Logger
	srv      *http.Server
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewServer creates a new mock server using the default Prometheus
// registerer.
func NewServer(cfg config.MockConfig) *Server {
	return NewServerWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewServerWithRegistry creates a new mock server and registers metrics on
// the provided registerer. If reg is nil the default registerer is used.
func NewServerWithRegistry(cfg config.MockConfig, reg prometheus.Registerer) *Server {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	log := logger.New("simulation-mock")

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evload_mock_simulations_total",
		Help: "Simulation requests handled by the mock server",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evload_mock_simulation_seconds",
		Help:    "Time spent producing a simulation archive",
		Buckets: prometheus.DefBuckets,
	})

	if err := reg.Register(requests); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				requests = exist
			} else {
				log.Errorf("existing collector for evload_mock_simulations_total has wrong type %T", are.ExistingCollector)
			}
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				duration = exist
			} else {
				log.Errorf("existing collector for evload_mock_simulation_seconds has wrong type %T", are.ExistingCollector)
			}
		}
	}
	return &Server{addr: cfg.Address, log: log, requests: requests, duration: duration}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("pong")); err != nil {
			s.log.Errorf("write pong: %v", err)
		}
	})
	r.Post("/api/simulate", s.handleSimulate)
	return r
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := readSubmission(r)
	if err != nil {
		s.requests.WithLabelValues("rejected").Inc()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	in, err := ParseInputs(req)
	if err != nil {
		s.requests.WithLabelValues("rejected").Inc()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	res, err := Run(in)
	if err != nil {
		s.requests.WithLabelValues("rejected").Inc()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	body, err := res.Archive()
	if err != nil {
		s.requests.WithLabelValues("failed").Inc()
		s.log.Errorf("pack archive: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.duration.Observe(time.Since(start).Seconds())
	s.requests.WithLabelValues("ok").Inc()
	s.log.Infof("simulated %d vehicles, %d routes: peak %.2f kW managed, %.2f kW unmanaged",
		len(res.Managed.VehicleIDs), len(res.Requirements), floats.Max(res.Managed.Total), floats.Max(res.Unmanaged.Total))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", model.ArchiveFileName))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	if _, err := w.Write(body); err != nil {
		s.log.Errorf("write archive: %v", err)
	}
}

func readSubmission(r *http.Request) (model.SubmissionRequest, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return model.SubmissionRequest{}, fmt.Errorf("parse form: %w", err)
	}
	files := make(map[model.Slot]model.File, len(model.Slots))
	for _, slot := range model.Slots {
		f, fh, err := r.FormFile(slot.PartName())
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			return model.SubmissionRequest{}, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return model.SubmissionRequest{}, err
		}
		files[slot] = model.File{Name: fh.Filename, Content: data}
	}
	return model.NewSubmissionRequest(files[model.SlotVehicles], files[model.SlotRoutes], files[model.SlotBaseLoad])
}

// Addr returns the listening address once Start has been called.
func (s *Server) Addr() string { return s.addr }

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
		cancel()
	}()
	s.log.Infof("simulation mock server listening on %s", s.addr)
	err = s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
