package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/models"
)

const channelPrefix = "panel:"

// RedisBus publishes a console's events on a redis channel so renderers in other
// processes can follow the same console.
type RedisBus struct {
	rdb       *redis.Client
	consoleID string
	log       zerolog.Logger
}

func NewRedisBus(rdb *redis.Client, consoleID string, log zerolog.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, consoleID: consoleID, log: log}
}

func (b *RedisBus) Channel() string {
	return fmt.Sprintf("%s%s", channelPrefix, b.consoleID)
}

func (b *RedisBus) Emit(ctx context.Context, ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to marshal event")
		return
	}
	if err := b.rdb.Publish(ctx, b.Channel(), string(data)).Err(); err != nil {
		b.log.Error().Err(err).Str("channel", b.Channel()).Msg("Failed to publish event")
	}
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan models.Event, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := b.rdb.Subscribe(ctx, b.Channel())
	// Wait for the subscription confirmation so no event published afterwards is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, nil, errors.Wrap(err, "subscribe to panel channel")
	}

	out := make(chan models.Event, defaultSubscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn().Err(err).Msg("Failed to unmarshal event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
