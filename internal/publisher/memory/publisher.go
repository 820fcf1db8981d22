// Package memory keeps capture events in process. It backs the default
// publisher.provider and stands in for Pub/Sub in worker tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/apc-golf/refhub/internal/refs"
)

// Recorded pairs a capture event with the topic it was published on.
type Recorded struct {
	Topic string
	Event refs.CaptureEvent
}

// Publisher records capture events instead of sending them anywhere.
// Payloads that are not capture events are rejected so a miswired
// worker fails loudly in tests.
type Publisher struct {
	mu       sync.RWMutex
	failWith error
	recorded []Recorded
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes every subsequent Publish return err. Pass nil to
// clear the fault.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

// Publish records the event and returns a sequence ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return "", p.failWith
	}
	event, ok := payload.(refs.CaptureEvent)
	if !ok {
		return "", fmt.Errorf("memory publisher: payload is %T, want refs.CaptureEvent", payload)
	}
	p.recorded = append(p.recorded, Recorded{Topic: topic, Event: event})
	return fmt.Sprintf("mem-%d", len(p.recorded)), nil
}

// Events returns the capture events published on topic, oldest first.
// An empty topic matches everything.
func (p *Publisher) Events(topic string) []refs.CaptureEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []refs.CaptureEvent
	for _, rec := range p.recorded {
		if topic == "" || rec.Topic == topic {
			out = append(out, rec.Event)
		}
	}
	return out
}

// Last returns the most recent publish, or false when nothing was
// published yet.
func (p *Publisher) Last() (Recorded, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.recorded) == 0 {
		return Recorded{}, false
	}
	return p.recorded[len(p.recorded)-1], true
}
