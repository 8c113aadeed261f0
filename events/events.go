// Package events carries panel events from the session controller to whatever
// renders them: an in-process broker, redis Pub/Sub, or a test recorder.
package events

import (
	"context"
	"sync"

	"github.com/emrahtokalak/supportflow/models"
)

type Sink interface {
	Emit(ctx context.Context, ev models.Event)
}

// Subscriber hands out a stream of events until the returned cancel func is called
// or ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan models.Event, func(), error)
}

type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev models.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

type Nop struct{}

func (Nop) Emit(context.Context, models.Event) {}

// Recorder captures everything emitted.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *Recorder) Emit(_ context.Context, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) OfType(t models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev models.Event)

func (f SinkFunc) Emit(ctx context.Context, ev models.Event) { f(ctx, ev) }
