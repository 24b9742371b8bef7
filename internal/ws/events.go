package ws

import (
	"encoding/json"
	"time"
)

// Event types - Client → Server
const (
	EventTypePing = "ping"
)

// Event types - Server → Client
const (
	EventTypeSnapshot     = "snapshot"
	EventTypeSection      = "section"
	EventTypeNotification = "notification"
	EventTypePong         = "pong"
	EventTypeError        = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// SectionPayload carries one replaced mirror section.
type SectionPayload struct {
	Section string `json:"section"`
	Data    any    `json:"data"`
}

// NotificationPayload is a user-visible notification.
type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	VideoID string `json:"videoId,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
