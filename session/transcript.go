package session

import (
	"context"
	"sync"

	"github.com/emrahtokalak/supportflow/models"
)

// DefaultMaxMessages bounds how much of the displayed conversation a store keeps.
const DefaultMaxMessages = 200

// Transcript keeps the displayed conversation of a console so a reconnecting
// renderer can replay it.
type Transcript interface {
	Load(ctx context.Context, key string) ([]models.ChatMessage, error)
	Append(ctx context.Context, key string, msgs ...models.ChatMessage) error
	Clear(ctx context.Context, key string) error
}

type MemoryTranscript struct {
	mu          sync.Mutex
	maxMessages int
	entries     map[string][]models.ChatMessage
}

func NewMemoryTranscript(maxMessages int) *MemoryTranscript {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &MemoryTranscript{
		maxMessages: maxMessages,
		entries:     map[string][]models.ChatMessage{},
	}
}

func (m *MemoryTranscript) Load(_ context.Context, key string) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ChatMessage, len(m.entries[key]))
	copy(out, m.entries[key])
	return out, nil
}

func (m *MemoryTranscript) Append(_ context.Context, key string, msgs ...models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = trim(append(m.entries[key], msgs...), m.maxMessages)
	return nil
}

func (m *MemoryTranscript) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// trim keeps only the last max messages
func trim(history []models.ChatMessage, max int) []models.ChatMessage {
	if len(history) > max {
		return history[len(history)-max:]
	}
	return history
}
