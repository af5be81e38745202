package ws

import "time"

type EventType string

const (
	EventNewMessage    EventType = "new_message"
	EventTyping        EventType = "typing"
	EventRead          EventType = "read"
	EventStatusChanged EventType = "status_changed"
	EventError         EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type    EventType `json:"type"`
	RoomID  string    `json:"room_id,omitempty"`
	Content string    `json:"content,omitempty"`

	// Optional idempotency key for new_message retries.
	ClientKey string `json:"client_key,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// TypingPayload is sent to the peer while the other side is typing. It is
// ephemeral: never persisted, and the receiving UI expires it on its own.
type TypingPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// ReadPayload notifies the peer that the user caught up in a room.
type ReadPayload struct {
	RoomID string    `json:"room_id"`
	UserID string    `json:"user_id"`
	ReadAt time.Time `json:"read_at"`
}

// StatusChangedPayload is pushed into a room when the post behind it moves
// through the transaction lifecycle.
type StatusChangedPayload struct {
	RoomID string `json:"room_id"`
	PostID string `json:"post_id"`
	Status string `json:"status"`
}
