package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/evload/config"
	coremon "github.com/kilianp07/evload/core/monitoring"
)

type eventLog struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (l *eventLog) beforeSend(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	return nil
}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestCaptureExceptionTags(t *testing.T) {
	log := &eventLog{}
	m, err := newSentryMonitor(sentry.ClientOptions{BeforeSend: log.beforeSend})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	m.CaptureException(errors.New("decode fault"), map[string]string{"stage": "decode", "run_id": "r1"})
	m.CaptureException(nil, nil)
	m.Flush(time.Second)

	if len(log.events) != 1 {
		t.Fatalf("expected 1 event got %d", len(log.events))
	}
	ev := log.events[0]
	if ev.Tags["stage"] != "decode" || ev.Tags["run_id"] != "r1" {
		t.Fatalf("tags not set: %v", ev.Tags)
	}
}

func TestRecoverValueThroughCoreMonitor(t *testing.T) {
	log := &eventLog{}
	m, err := newSentryMonitor(sentry.ClientOptions{BeforeSend: log.beforeSend})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	coremon.Init(m)
	defer coremon.Init(coremon.NopMonitor{})

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("expected re-panic, got %v", r)
			}
		}()
		defer coremon.Recover()
		panic("boom")
	}()
	if len(log.events) != 1 {
		t.Fatalf("panic not reported, got %d events", len(log.events))
	}
}
