package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"tubeferry/internal/store"
)

// Notification kinds recorded by Recorder.
const (
	EventAdded     = "added"
	EventUpdated   = "updated"
	EventCompleted = "completed"
	EventCanceled  = "canceled"
	EventCleared   = "cleared"
)

// Event is one recorded notification.
type Event struct {
	Kind string
	Key  string
	Desc store.Descriptor
}

// Recorder is an in-memory notifier for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	signal chan struct{}
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{signal: make(chan struct{}, 1)}
}

func (r *Recorder) record(e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
	return nil
}

func (r *Recorder) Added(_ context.Context, key string, desc store.Descriptor) error {
	return r.record(Event{Kind: EventAdded, Key: key, Desc: desc})
}

func (r *Recorder) Updated(_ context.Context, desc store.Descriptor) error {
	return r.record(Event{Kind: EventUpdated, Key: desc.URL, Desc: desc})
}

func (r *Recorder) Completed(_ context.Context, key string, desc store.Descriptor) error {
	return r.record(Event{Kind: EventCompleted, Key: key, Desc: desc})
}

func (r *Recorder) Canceled(_ context.Context, key string) error {
	return r.record(Event{Kind: EventCanceled, Key: key})
}

func (r *Recorder) Cleared(_ context.Context, key string) error {
	return r.record(Event{Kind: EventCleared, Key: key})
}

// Events returns a copy of every recorded event.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Keys returns the keys of events of the given kind in arrival order.
func (r *Recorder) Keys(kind string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e.Key)
		}
	}
	return out
}

// Count returns how many events of kind were recorded for key. An empty key
// counts every event of that kind.
func (r *Recorder) Count(kind, key string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind && (key == "" || e.Key == key) {
			n++
		}
	}
	return n
}

// WaitFor blocks until at least n events of kind are recorded.
func (r *Recorder) WaitFor(t testing.TB, kind string, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for r.Count(kind, "") < n {
		select {
		case <-r.signal:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %d %s events; got %d", n, kind, r.Count(kind, ""))
		}
	}
}
