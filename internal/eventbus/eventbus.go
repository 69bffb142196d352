// Package eventbus fans dataset lifecycle events out to interested readers
// such as the chart viewer and the MQTT publisher.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber channel capacity used by New.
const DefaultBuffer = 8

// Bus is a type-safe publish/subscribe bus for events of type T. Publishing
// never blocks: a subscriber whose buffer is full misses the event and the
// miss is counted.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   []chan T
	closed bool
	buffer int
	drops  atomic.Uint64
}

// New creates a Bus with DefaultBuffer slots per subscriber.
func New[T any]() *Bus[T] { return NewBuffered[T](DefaultBuffer) }

// NewBuffered creates a Bus with n slots per subscriber.
func NewBuffered[T any](n int) *Bus[T] {
	if n < 1 {
		n = 1
	}
	return &Bus[T]{buffer: n}
}

// Publish sends e to every subscriber and returns how many received it.
func (b *Bus[T]) Publish(e T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	sent := 0
	for _, ch := range b.subs {
		select {
		case ch <- e:
			sent++
		default:
			b.drops.Add(1)
		}
	}
	return sent
}

// Dropped reports how many deliveries were skipped because a subscriber
// was not keeping up.
func (b *Bus[T]) Dropped() uint64 { return b.drops.Load() }

// Subscribe registers a subscriber and returns its channel. Subscribing to
// a closed bus returns a closed channel.
func (b *Bus[T]) Subscribe() <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes the bus and all subscriber channels.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
