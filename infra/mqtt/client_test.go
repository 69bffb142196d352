package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/evload/core/model"
	coremon "github.com/kilianp07/evload/core/monitoring"
	"github.com/kilianp07/evload/core/pipeline"
)

func withMockClient(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func sampleDataset() model.ChartDataset {
	return model.ChartDataset{RunID: "run-1", Records: []model.AlignedRecord{
		{Time: "00:00", ManagedPowerKW: 10, UnmanagedPowerKW: 20},
		{Time: "00:30", ManagedPowerKW: 12, UnmanagedPowerKW: 8},
	}}
}

func TestPublishDatasetTopicAndQoS(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", TopicPrefix: "fleet", QoS: 1, Retain: true})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := cli.PublishDataset(sampleDataset()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.published) != 1 {
		t.Fatalf("expected 1 publish got %d", len(mc.published))
	}
	pub := mc.published[0]
	if pub.topic != "fleet/results/dataset" || pub.qos != 1 || !pub.retained {
		t.Fatalf("unexpected publish %+v", pub)
	}
	var msg DatasetMessage
	if err := json.Unmarshal(pub.payload, &msg); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if msg.RunID != "run-1" || len(msg.Records) != 2 || msg.Summary.PeakUnmanagedKW != 20 {
		t.Fatalf("unexpected payload %+v", msg)
	}
}

func TestDefaultsAppliedOnConnect(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if cli.cfg.DatasetTopic() != "evload/results/dataset" {
		t.Fatalf("unexpected topic %s", cli.cfg.DatasetTopic())
	}
	if mc.opts.ClientID == "" {
		t.Fatalf("client id not generated")
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	cli.Disconnect()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMockClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := cli.PublishDataset(sampleDataset()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries")
	}
}

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestPublishErrorCaptured(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail}}
	withMockClient(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := cli.PublishDataset(sampleDataset()); err == nil {
		t.Fatalf("expected error")
	}
	if mon.err == nil {
		t.Fatalf("error not captured")
	}
	if mon.tags["run_id"] != "run-1" || mon.tags["module"] != "mqtt" {
		t.Fatalf("tags not set: %v", mon.tags)
	}
}

func TestForwardSurfaceEvents(t *testing.T) {
	surface := pipeline.NewSurface()
	events := surface.Subscribe()
	pub := NewMockPublisher()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Forward(ctx, pub, events, nil)
		close(done)
	}()

	surface.Publish(sampleDataset())
	surface.Fail("run-2", &pipeline.StageError{Stage: pipeline.StageAlign, Kind: pipeline.ErrAlignment, Err: fmt.Errorf("short")})
	surface.Close()
	<-done
	cancel()

	datasets, statuses := pub.Snapshot()
	if len(datasets) != 1 || datasets[0].RunID != "run-1" {
		t.Fatalf("unexpected datasets %+v", datasets)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses got %d", len(statuses))
	}
	if statuses[0].State != pipeline.StateReady || statuses[1].Kind != "alignment" {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts      *paho.ClientOptions
	published []struct {
		topic    string
		qos      byte
		retained bool
		payload  []byte
	}
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, struct {
		topic    string
		qos      byte
		retained bool
		payload  []byte
	}{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }
