package pipeline

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/internal/eventbus"
)

// EventKind distinguishes surface events.
type EventKind string

const (
	DatasetPublished EventKind = "dataset_published"
	IngestionFailed  EventKind = "ingestion_failed"
)

// Event is fanned out to subscribers whenever the surface changes.
type Event struct {
	Kind    EventKind
	RunID   string
	Dataset *model.ChartDataset
	Err     error
	Time    time.Time
}

// State values reported by Status.
const (
	StateIdle   = "idle"
	StateReady  = "ready"
	StateFailed = "failed"
)

// Status describes the outcome of the latest cycle.
type Status struct {
	State     string    `json:"state"`
	RunID     string    `json:"run_id,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Rows      int       `json:"rows"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Surface holds the dataset currently shown to the user. A dataset is
// replaced as a whole; readers never observe a partially built one. A
// failed cycle leaves the previous dataset in place.
type Surface struct {
	current atomic.Pointer[model.ChartDataset]
	status  atomic.Pointer[Status]
	bus     *eventbus.Bus[Event]
	now     func() time.Time
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	s := &Surface{bus: eventbus.New[Event](), now: time.Now}
	s.status.Store(&Status{State: StateIdle})
	return s
}

// Publish makes ds the current dataset.
func (s *Surface) Publish(ds model.ChartDataset) {
	ds.Records = append([]model.AlignedRecord(nil), ds.Records...)
	now := s.now()
	s.current.Store(&ds)
	s.status.Store(&Status{State: StateReady, RunID: ds.RunID, Rows: ds.Len(), UpdatedAt: now})
	s.bus.Publish(Event{Kind: DatasetPublished, RunID: ds.RunID, Dataset: &ds, Time: now})
}

// Fail records a failed cycle.
func (s *Surface) Fail(runID string, err error) {
	now := s.now()
	st := &Status{State: StateFailed, RunID: runID, Kind: KindOf(err), Message: Message(err), Error: err.Error(), UpdatedAt: now}
	var se *StageError
	if errors.As(err, &se) {
		st.Stage = se.Stage
	}
	if ds := s.current.Load(); ds != nil {
		st.Rows = ds.Len()
	}
	s.status.Store(st)
	s.bus.Publish(Event{Kind: IngestionFailed, RunID: runID, Err: err, Time: now})
}

// Current returns the published dataset, if any. The returned value shares
// no memory with later publications.
func (s *Surface) Current() (model.ChartDataset, bool) {
	ds := s.current.Load()
	if ds == nil {
		return model.ChartDataset{}, false
	}
	return *ds, true
}

// Status returns the outcome of the latest cycle.
func (s *Surface) Status() Status { return *s.status.Load() }

// Subscribe returns a channel receiving every later event.
func (s *Surface) Subscribe() <-chan Event { return s.bus.Subscribe() }

// Unsubscribe stops delivery to ch and closes it.
func (s *Surface) Unsubscribe(ch <-chan Event) { s.bus.Unsubscribe(ch) }

// Close closes all subscriber channels.
func (s *Surface) Close() { s.bus.Close() }
