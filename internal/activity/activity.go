package activity

import (
	"context"
	"sync"
	"time"
)

// Event is one backend activity notification pushed to observers, mirroring
// the terminal feed payload: {type, status|content, metadata, timestamp}.
type Event struct {
	Type      string         `json:"type"`
	Status    string         `json:"status,omitempty"`
	Content   string         `json:"content,omitempty"`
	Query     string         `json:"query,omitempty"`
	URL       string         `json:"url,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink receives activity events. Implementations must be fire-and-forget:
// publishing never blocks and never fails the caller.
type Sink interface {
	Publish(ev Event)
}

// NopSink discards all events. The default when no observer is wired in.
type NopSink struct{}

func (NopSink) Publish(Event) {}

type observerKey struct{}

// WithObserver returns a context carrying an extra per-request sink.
// Emit delivers every event to it alongside the component's own sink,
// so a handler can collect the activity log for one request.
func WithObserver(ctx context.Context, sink Sink) context.Context {
	return context.WithValue(ctx, observerKey{}, sink)
}

// Emit publishes ev to sink and to the observer carried by ctx, if any.
func Emit(ctx context.Context, sink Sink, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if sink != nil {
		sink.Publish(ev)
	}
	if obs, ok := ctx.Value(observerKey{}).(Sink); ok && obs != nil {
		obs.Publish(ev)
	}
}

// Recorder collects events in memory, for per-request activity logs.
type Recorder struct {
	mu     sync.Mutex
	sink   Sink
	events []Event
}

// NewRecorder wraps an underlying sink, keeping a copy of every event so a
// request handler can return the activity log alongside its response.
func NewRecorder(sink Sink) *Recorder {
	if sink == nil {
		sink = NopSink{}
	}
	return &Recorder{sink: sink}
}

func (r *Recorder) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.sink.Publish(ev)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
