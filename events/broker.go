package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/models"
)

const defaultSubscriberBuffer = 64

// Broker fans events out to in-process subscribers. A subscriber whose buffer is
// full misses the event rather than stalling the panel.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan models.Event
	nextID int
	buffer int
	log    zerolog.Logger
}

func NewBroker(log zerolog.Logger) *Broker {
	return &Broker{
		subs:   map[int]chan models.Event{},
		buffer: defaultSubscriberBuffer,
		log:    log,
	}
}

func (b *Broker) Emit(_ context.Context, ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.Warn().Int("subscriber", id).Str("event", string(ev.Type)).Msg("Subscriber buffer full, dropping event")
		}
	}
}

func (b *Broker) Subscribe(ctx context.Context) (<-chan models.Event, func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan models.Event, b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

func (b *Broker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
