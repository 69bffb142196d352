package mqtt

import (
	"context"
	"errors"
	"sync"

	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/pipeline"
	"github.com/kilianp07/evload/infra/logger"
)

// Publisher sends ingestion results somewhere outside the process.
type Publisher interface {
	PublishDataset(ds model.ChartDataset) error
	PublishStatus(st StatusMessage) error
}

// Forward publishes every surface event until events is closed or ctx is
// done. Publish failures are logged and do not stop forwarding.
func Forward(ctx context.Context, pub Publisher, events <-chan pipeline.Event, log logger.Logger) {
	if log == nil {
		log = logger.NopLogger{}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := forward(pub, ev); err != nil {
				log.Errorf("forward %s for run %s: %v", ev.Kind, ev.RunID, err)
			}
		}
	}
}

func forward(pub Publisher, ev pipeline.Event) error {
	st := StatusMessage{RunID: ev.RunID, Time: ev.Time}
	switch ev.Kind {
	case pipeline.DatasetPublished:
		if ev.Dataset == nil {
			return errors.New("dataset event without dataset")
		}
		if err := pub.PublishDataset(*ev.Dataset); err != nil {
			return err
		}
		st.State = pipeline.StateReady
	case pipeline.IngestionFailed:
		st.State = pipeline.StateFailed
		st.Kind = pipeline.KindOf(ev.Err)
		st.Message = pipeline.Message(ev.Err)
	default:
		return nil
	}
	return pub.PublishStatus(st)
}

// MockPublisher records published messages. It is used in tests.
type MockPublisher struct {
	mu       sync.Mutex
	Datasets []model.ChartDataset
	Statuses []StatusMessage
	Fail     bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher { return &MockPublisher{} }

// PublishDataset records ds or fails when configured to.
func (m *MockPublisher) PublishDataset(ds model.ChartDataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errors.New("publish failed")
	}
	m.Datasets = append(m.Datasets, ds)
	return nil
}

// PublishStatus records st or fails when configured to.
func (m *MockPublisher) PublishStatus(st StatusMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errors.New("publish failed")
	}
	m.Statuses = append(m.Statuses, st)
	return nil
}

// Snapshot returns copies of the recorded messages.
func (m *MockPublisher) Snapshot() ([]model.ChartDataset, []StatusMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChartDataset(nil), m.Datasets...), append([]StatusMessage(nil), m.Statuses...)
}
