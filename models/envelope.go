package models

import "time"

// CustomerInfo is the optional intake data sent with the first message of a session.
// A nil map means none.
type CustomerInfo map[string]string

type ChatRequest struct {
	Message      string       `json:"message"`
	SessionID    *string      `json:"session_id"`
	Model        string       `json:"model"`
	CustomerInfo CustomerInfo `json:"customer_info"`
}

type ChatResponse struct {
	SessionID        string `json:"session_id"`
	Response         string `json:"response"`
	Category         string `json:"category,omitempty"`
	RequiresHuman    bool   `json:"requires_human"`
	EscalationReason string `json:"escalation_reason,omitempty"`
	TurnCount        int    `json:"turn_count"`
	Status           string `json:"status,omitempty"`
}

// Turn is one parsed backend reply within a session.
type Turn struct {
	SessionID        string `json:"session_id"`
	Reply            string `json:"reply"`
	Category         string `json:"category,omitempty"`
	RequiresHuman    bool   `json:"requires_human"`
	EscalationReason string `json:"escalation_reason,omitempty"`
	TurnCount        int    `json:"turn_count"`
}

func (r ChatResponse) Turn() Turn {
	return Turn{
		SessionID:        r.SessionID,
		Reply:            r.Response,
		Category:         r.Category,
		RequiresHuman:    r.RequiresHuman,
		EscalationReason: r.EscalationReason,
		TurnCount:        r.TurnCount,
	}
}

type HealthResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	OllamaAvailable bool   `json:"ollama_available"`
}

func (h HealthResponse) Healthy() bool {
	return h.Status == "healthy"
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type EscalateRequest struct {
	SessionID    string `json:"session_id"`
	Reason       string `json:"reason"`
	HumanAgentID string `json:"human_agent_id,omitempty"`
}

type EscalateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type SessionStatusResponse struct {
	SessionID              string  `json:"session_id"`
	IsActive               bool    `json:"is_active"`
	TurnCount              int     `json:"turn_count"`
	RequiresHuman          bool    `json:"requires_human"`
	EscalationReason       string  `json:"escalation_reason,omitempty"`
	SessionDurationMinutes float64 `json:"session_duration_minutes"`
	LastActivity           string  `json:"last_activity"`
}

// SessionSnapshot is a point-in-time view of a backend session. It is never cached.
type SessionSnapshot struct {
	SessionID        string    `json:"session_id"`
	IsActive         bool      `json:"is_active"`
	TurnCount        int       `json:"turn_count"`
	RequiresHuman    bool      `json:"requires_human"`
	EscalationReason string    `json:"escalation_reason,omitempty"`
	DurationMinutes  float64   `json:"duration_minutes"`
	LastActivity     time.Time `json:"last_activity"`
}

type PendingSession struct {
	SessionID        string       `json:"session_id"`
	CreatedAt        string       `json:"created_at"`
	TurnCount        int          `json:"turn_count"`
	EscalationReason string       `json:"escalation_reason,omitempty"`
	CustomerInfo     CustomerInfo `json:"customer_info,omitempty"`
	LastMessage      string       `json:"last_message,omitempty"`
}

type PendingSessionsResponse struct {
	Sessions []PendingSession `json:"sessions"`
	Count    int              `json:"count"`
}

type CleanupResponse struct {
	CleanedSessions int    `json:"cleaned_sessions"`
	Message         string `json:"message"`
}

// ShortID renders a session id the way the panel header shows it.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
