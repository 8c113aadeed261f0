package models

// WSIncoming is a command frame sent by a renderer over the websocket.
type WSIncoming struct {
	Type   string            `json:"type"`
	Text   string            `json:"text,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Name   string            `json:"name,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}
