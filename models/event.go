package models

import "time"

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type EventType string

const (
	EventMessage    EventType = "message"
	EventNotice     EventType = "notice"
	EventConnection EventType = "connection"
	EventSession    EventType = "session"
	EventEscalation EventType = "escalation"
	EventSnapshot   EventType = "snapshot"
	EventCleared    EventType = "cleared"
	EventInput      EventType = "input"
	EventError      EventType = "error"
	EventConnected  EventType = "connected"
	EventIntake     EventType = "intake"
)

type MessageMeta struct {
	Category         string `json:"category,omitempty"`
	TurnCount        int    `json:"turn_count,omitempty"`
	RequiresHuman    bool   `json:"requires_human,omitempty"`
	EscalationReason string `json:"escalation_reason,omitempty"`
	IsError          bool   `json:"is_error,omitempty"`
	IsEscalation     bool   `json:"is_escalation,omitempty"`
}

// ChatMessage is one entry of the displayed conversation.
type ChatMessage struct {
	ID     string      `json:"id"`
	Sender string      `json:"sender"`
	Text   string      `json:"text"`
	Meta   MessageMeta `json:"meta"`
	Time   time.Time   `json:"time"`
}

// Event is what the panel pushes to renderers.
type Event struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	ConsoleID string           `json:"console_id,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Message   *ChatMessage     `json:"message,omitempty"`
	Text      string           `json:"text,omitempty"`
	Connected *bool            `json:"connected,omitempty"`
	Enabled   *bool            `json:"enabled,omitempty"`
	Available *bool            `json:"available,omitempty"`
	Snapshot  *SessionSnapshot `json:"snapshot,omitempty"`
	Phase     string           `json:"phase,omitempty"`
	Time      time.Time        `json:"time"`
}

func Bool(b bool) *bool {
	return &b
}
