package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/emrahtokalak/supportflow/models"
)

const (
	DefaultTranscriptTTL = 24 * time.Hour
	transcriptPrefix     = "transcript:"
)

// RedisTranscript stores each console's transcript as one JSON value with a TTL.
type RedisTranscript struct {
	rdb         *redis.Client
	ttl         time.Duration
	maxMessages int
}

func NewRedisTranscript(rdb *redis.Client, ttl time.Duration, maxMessages int) *RedisTranscript {
	if ttl <= 0 {
		ttl = DefaultTranscriptTTL
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &RedisTranscript{rdb: rdb, ttl: ttl, maxMessages: maxMessages}
}

func (t *RedisTranscript) key(consoleID string) string {
	return fmt.Sprintf("%s%s", transcriptPrefix, consoleID)
}

func (t *RedisTranscript) Load(ctx context.Context, consoleID string) ([]models.ChatMessage, error) {
	data, err := t.rdb.Get(ctx, t.key(consoleID)).Bytes()
	if err == redis.Nil {
		return []models.ChatMessage{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load transcript")
	}

	var history []models.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal transcript")
	}
	return history, nil
}

func (t *RedisTranscript) save(ctx context.Context, consoleID string, history []models.ChatMessage) error {
	data, err := json.Marshal(trim(history, t.maxMessages))
	if err != nil {
		return errors.Wrap(err, "failed to marshal transcript")
	}

	if err := t.rdb.Set(ctx, t.key(consoleID), data, t.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to save transcript")
	}
	return nil
}

// Append is a read-modify-write; a console has a single writer, its panel.
func (t *RedisTranscript) Append(ctx context.Context, consoleID string, msgs ...models.ChatMessage) error {
	history, err := t.Load(ctx, consoleID)
	if err != nil {
		return err
	}
	return t.save(ctx, consoleID, append(history, msgs...))
}

func (t *RedisTranscript) Clear(ctx context.Context, consoleID string) error {
	if err := t.rdb.Del(ctx, t.key(consoleID)).Err(); err != nil {
		return errors.Wrap(err, "failed to clear transcript")
	}
	return nil
}
