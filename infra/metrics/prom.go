package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evload/core/metrics"
)

// PromSink records ingestion cycles in Prometheus metrics.
type PromSink struct {
	cycles      *prometheus.CounterVec
	duration    prometheus.Histogram
	stages      *prometheus.HistogramVec
	submissions *prometheus.CounterVec
	latency     prometheus.Histogram
	archive     prometheus.Gauge
	peak        *prometheus.GaugeVec
}

// NewPromSink registers ingestion metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered under the same name are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evload_ingestion_cycles_total",
			Help: "Completed ingestion cycles by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evload_ingestion_duration_seconds",
			Help:    "Time from submission to published dataset",
			Buckets: prometheus.DefBuckets,
		}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evload_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage", "failed"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evload_simulation_requests_total",
			Help: "Requests sent to the simulation service by HTTP status",
		}, []string{"status"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evload_simulation_latency_seconds",
			Help:    "Round trip time of simulation requests",
			Buckets: prometheus.DefBuckets,
		}),
		archive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evload_archive_bytes",
			Help: "Size of the last ingested result archive",
		}),
		peak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evload_peak_demand_kw",
			Help: "Peak total demand of the last published dataset",
		}, []string{"series"}),
	}

	var err error
	if s.cycles, err = register(reg, s.cycles); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.stages, err = register(reg, s.stages); err != nil {
		return nil, err
	}
	if s.submissions, err = register(reg, s.submissions); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.archive, err = register(reg, s.archive); err != nil {
		return nil, err
	}
	if s.peak, err = register(reg, s.peak); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return c, err
		}
		exist, ok := are.ExistingCollector.(C)
		if !ok {
			return c, err
		}
		return exist, nil
	}
	return c, nil
}

// RecordIngestion counts the cycle and, on success, updates the peak gauges.
func (s *PromSink) RecordIngestion(ev coremetrics.IngestionEvent) error {
	s.cycles.WithLabelValues(ev.Outcome).Inc()
	s.duration.Observe(ev.Duration.Seconds())
	if ev.ArchiveBytes > 0 {
		s.archive.Set(float64(ev.ArchiveBytes))
	}
	if ev.Outcome == coremetrics.OutcomeSuccess {
		s.peak.WithLabelValues("managed").Set(ev.PeakManagedKW)
		s.peak.WithLabelValues("unmanaged").Set(ev.PeakUnmanagedKW)
	}
	return nil
}

// RecordStage observes the stage duration.
func (s *PromSink) RecordStage(st coremetrics.StageTiming) error {
	s.stages.WithLabelValues(st.Stage, strconv.FormatBool(st.Failed)).Observe(st.Duration.Seconds())
	return nil
}

// RecordSubmission counts the request by status and observes its latency.
// A zero status means no response was received.
func (s *PromSink) RecordSubmission(ev coremetrics.SubmissionEvent) error {
	status := "none"
	if ev.StatusCode > 0 {
		status = strconv.Itoa(ev.StatusCode)
	}
	s.submissions.WithLabelValues(status).Inc()
	s.latency.Observe(ev.Latency.Seconds())
	return nil
}
