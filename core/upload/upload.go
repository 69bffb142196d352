// Package upload collects the three simulation input files and submits them
// to the remote simulation in a single request.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evload/core/logger"
	"github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/monitoring"
)

// Simulator sends a complete submission and returns the raw archive.
type Simulator interface {
	Simulate(ctx context.Context, req model.SubmissionRequest) (model.ResultArchive, error)
}

// Saver persists the raw archive under name and returns where it went.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// StatusCoder is implemented by simulator errors carrying an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Submission is the outcome of a successful Submit.
type Submission struct {
	RunID     string
	Archive   model.ResultArchive
	SavedPath string
	// SaveErr is set when the archive could not be saved. The archive is
	// still returned so the cycle can continue.
	SaveErr error
}

// Coordinator holds the registered input files. Registration is safe for
// concurrent use; submissions are not serialised against each other.
type Coordinator struct {
	sim   Simulator
	saver Saver
	log   logger.Logger
	sink  metrics.SubmissionRecorder
	now   func() time.Time

	mu    sync.Mutex
	files map[model.Slot]model.File
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(c *Coordinator) { c.log = logger.OrNop(l) } }

// WithMetrics records each round trip on rec.
func WithMetrics(rec metrics.SubmissionRecorder) Option {
	return func(c *Coordinator) {
		if rec != nil {
			c.sink = rec
		}
	}
}

// New creates a Coordinator.
func New(sim Simulator, saver Saver, opts ...Option) *Coordinator {
	c := &Coordinator{
		sim:   sim,
		saver: saver,
		log:   logger.Nop{},
		sink:  metrics.NopSink{},
		now:   time.Now,
		files: make(map[model.Slot]model.File, len(model.Slots)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RegisterFile attaches f to slot, replacing any earlier registration. The
// content is not inspected.
func (c *Coordinator) RegisterFile(slot model.Slot, f model.File) error {
	if slot.PartName() == "" {
		return fmt.Errorf("%w: %q", model.ErrUnknownSlot, slot)
	}
	c.mu.Lock()
	c.files[slot] = f
	c.mu.Unlock()
	c.log.Debugw("file registered", map[string]any{"slot": slot.String(), "name": f.Name, "bytes": len(f.Content)})
	return nil
}

// Registered reports which slots currently hold a non-empty file.
func (c *Coordinator) Registered() map[model.Slot]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[model.Slot]bool, len(model.Slots))
	for _, s := range model.Slots {
		out[s] = !c.files[s].Empty()
	}
	return out
}

// Submit sends the registered files to the simulator. An incomplete set of
// files fails before anything is sent. On success the raw response is saved
// under model.ArchiveFileName before it is returned, whatever happens to it
// afterwards.
func (c *Coordinator) Submit(ctx context.Context) (Submission, error) {
	c.mu.Lock()
	vehicles, routes, baseLoad := c.files[model.SlotVehicles], c.files[model.SlotRoutes], c.files[model.SlotBaseLoad]
	c.mu.Unlock()

	req, err := model.NewSubmissionRequest(vehicles, routes, baseLoad)
	if err != nil {
		c.log.Warnf("submission rejected: %v", err)
		return Submission{}, err
	}

	sub := Submission{RunID: uuid.NewString()}
	start := c.now()
	archive, err := c.sim.Simulate(ctx, req)
	ev := metrics.SubmissionEvent{RunID: sub.RunID, Latency: c.now().Sub(start), Time: start}
	if err != nil {
		var sc StatusCoder
		if errors.As(err, &sc) {
			ev.StatusCode = sc.StatusCode()
		}
		c.record(ev)
		c.log.Errorf("simulation request %s failed: %v", sub.RunID, err)
		return Submission{RunID: sub.RunID}, fmt.Errorf("simulate: %w", err)
	}
	sub.Archive = archive
	ev.StatusCode = http.StatusOK
	ev.Bytes = len(archive)

	sub.SavedPath, sub.SaveErr = c.saver.Save(model.ArchiveFileName, archive)
	if sub.SaveErr != nil {
		c.log.Errorf("save %s for run %s: %v", model.ArchiveFileName, sub.RunID, sub.SaveErr)
		monitoring.CaptureException(sub.SaveErr, map[string]string{"stage": "save", "run_id": sub.RunID})
	} else {
		ev.Saved = true
		c.log.Infof("run %s: saved %d bytes to %s", sub.RunID, len(archive), sub.SavedPath)
	}
	c.record(ev)
	return sub, nil
}

func (c *Coordinator) record(ev metrics.SubmissionEvent) {
	if err := c.sink.RecordSubmission(ev); err != nil {
		c.log.Warnf("record submission: %v", err)
	}
}
