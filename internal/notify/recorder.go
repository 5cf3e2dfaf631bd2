package notify

import (
	"context"
	"sync"
)

// Recorder keeps every event it receives. It satisfies both Sink and
// Publisher, which makes it useful as a synchronous stand-in in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify records ev.
func (r *Recorder) Notify(_ context.Context, ev Event) error {
	r.Publish(ev)
	return nil
}

// Publish records events.
func (r *Recorder) Publish(events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns the recorded events of kind k.
func (r *Recorder) OfKind(k Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
