// Package protocol defines the messages pushed to overlay subscribers.
package protocol

import "encoding/json"

// MessageType defines the type of a broadcast message
type MessageType string

const (
	// TypeSettings carries the full overlay settings document
	TypeSettings MessageType = "settings"

	// TypeKeyPress carries one synthesized combo, e.g. "Ctrl+Shift+A"
	TypeKeyPress MessageType = "keypress"
)

// Message is the container for every message sent to subscribers.
// Data is set for TypeSettings, Combo for TypeKeyPress.
type Message struct {
	Type  MessageType     `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Combo string          `json:"combo,omitempty"`
}

// Settings wraps a settings document. data must be valid JSON.
func Settings(data json.RawMessage) Message {
	return Message{Type: TypeSettings, Data: data}
}

// KeyPress wraps a combo.
func KeyPress(combo string) Message {
	return Message{Type: TypeKeyPress, Combo: combo}
}
