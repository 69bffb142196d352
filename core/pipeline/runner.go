// Package pipeline composes the submission, decode, parse and align stages
// into one ingestion cycle and publishes the resulting chart dataset.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evload/core/logger"
	"github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/monitoring"
	"github.com/kilianp07/evload/core/upload"
)

// Submitter sends the registered inputs and returns the saved archive.
type Submitter interface {
	Submit(ctx context.Context) (upload.Submission, error)
}

// Outcome is the result of a successful cycle.
type Outcome struct {
	Submission upload.Submission
	Result     Result
}

// Runner drives complete cycles and reports their outcome.
type Runner struct {
	submitter Submitter
	stages    *Stages
	surface   *Surface
	sink      metrics.MetricsSink
	log       logger.Logger
	now       func() time.Time
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger used by the runner and its stages.
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) { r.log = logger.OrNop(l) }
}

// WithSink records every cycle on sink. If sink also implements
// metrics.StageRecorder, stage timings are recorded too.
func WithSink(sink metrics.MetricsSink) RunnerOption {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithWindow overrides the number of charted rows.
func WithWindow(n int) RunnerOption {
	return func(r *Runner) { r.stages.Window = n }
}

// NewRunner creates a Runner. submitter may be nil for runners that only
// ingest existing archives.
func NewRunner(submitter Submitter, surface *Surface, opts ...RunnerOption) *Runner {
	if surface == nil {
		surface = NewSurface()
	}
	r := &Runner{
		submitter: submitter,
		stages:    NewStages(),
		surface:   surface,
		sink:      metrics.NopSink{},
		log:       logger.Nop{},
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.stages.Log = r.log
	if sr, ok := r.sink.(metrics.StageRecorder); ok {
		r.stages.Timings = sr
	}
	return r
}

// Surface returns the surface the runner publishes to.
func (r *Runner) Surface() *Surface { return r.surface }

// Run submits the registered inputs and ingests the response.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	if r.submitter == nil {
		return Outcome{}, fail(StageSubmit, ErrSubmission, errors.New("no submitter configured"))
	}
	start := r.now()
	sub, err := r.submitter.Submit(ctx)
	if err != nil {
		kind := ErrTransport
		if errors.Is(err, model.ErrIncompleteSubmission) {
			kind = ErrSubmission
		}
		if sub.RunID == "" {
			sub.RunID = uuid.NewString()
		}
		return Outcome{Submission: upload.Submission{RunID: sub.RunID}}, r.failed(sub.RunID, start, 0, fail(StageSubmit, kind, err))
	}
	res, err := r.ingest(ctx, sub.RunID, sub.Archive, start)
	return Outcome{Submission: sub, Result: res}, err
}

// Ingest runs the decode chain over an archive obtained elsewhere, such as
// a previously saved response.
func (r *Runner) Ingest(ctx context.Context, a model.ResultArchive) (Result, error) {
	return r.ingest(ctx, uuid.NewString(), a, r.now())
}

func (r *Runner) ingest(ctx context.Context, runID string, a model.ResultArchive, start time.Time) (Result, error) {
	res, err := r.stages.Run(ctx, runID, a)
	if err != nil {
		return Result{}, r.failed(runID, start, len(a), err)
	}
	r.surface.Publish(res.Dataset)
	managed, unmanaged := peak(res.Dataset.Managed()), peak(res.Dataset.Unmanaged())
	r.record(metrics.IngestionEvent{
		RunID:           runID,
		Outcome:         metrics.OutcomeSuccess,
		Stage:           StagePublish,
		Duration:        r.now().Sub(start),
		ArchiveBytes:    len(a),
		Rows:            res.Dataset.Len(),
		PeakManagedKW:   managed,
		PeakUnmanagedKW: unmanaged,
		Time:            start,
	})
	r.log.Infof("run %s: published %d records (peak %.2f kW managed, %.2f kW unmanaged)", runID, res.Dataset.Len(), managed, unmanaged)
	return res, nil
}

func (r *Runner) failed(runID string, start time.Time, size int, err error) error {
	stage := ""
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	r.log.Errorf("run %s: %s stage failed: %v", runID, stage, err)
	monitoring.CaptureException(err, map[string]string{"stage": stage, "run_id": runID, "kind": KindOf(err)})
	r.surface.Fail(runID, err)
	r.record(metrics.IngestionEvent{
		RunID:        runID,
		Outcome:      KindOf(err),
		Stage:        stage,
		Duration:     r.now().Sub(start),
		ArchiveBytes: size,
		Time:         start,
	})
	return err
}

func (r *Runner) record(ev metrics.IngestionEvent) {
	if err := r.sink.RecordIngestion(ev); err != nil {
		r.log.Warnf("record ingestion: %v", err)
	}
}

func peak(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}
