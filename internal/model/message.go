package model

import (
	"encoding/json"
	"time"
)

type MessageKind string

// Message kinds are decided at write time: text for user messages, notice
// for plain system messages, approval for the structured access card.
const (
	MessageKindText     MessageKind = "text"
	MessageKindNotice   MessageKind = "notice"
	MessageKindApproval MessageKind = "approval"
)

// Message is an immutable, append-only chat log entry. There are no update
// or delete operations.
type Message struct {
	ID         string      `json:"id"`
	ChatRoomID string      `json:"chat_room_id"`
	SenderID   string      `json:"sender_id"`
	Kind       MessageKind `json:"kind"`
	Content    string      `json:"content"`
	IsSystem   bool        `json:"is_system"`
	ClientKey  *string     `json:"client_key,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ApprovalCard is the structured payload of an open-chat approval message,
// serialized as JSON into the message content.
type ApprovalCard struct {
	Type  string  `json:"type"`
	Title string  `json:"title"`
	Link  *string `json:"link"`
	Code  *string `json:"code"`
}

// EncodeApprovalCard serializes the card for storage as message content.
func EncodeApprovalCard(title string, link, code *string) (string, error) {
	data, err := json.Marshal(ApprovalCard{Type: "approve", Title: title, Link: link, Code: code})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeApprovalCard attempts to parse a system message as an approval card.
// Historical rows have no kind column, so any system message may hold either
// a plain notice or JSON; parse failure means plain text, never an error.
func DecodeApprovalCard(content string) (*ApprovalCard, bool) {
	var card ApprovalCard
	if err := json.Unmarshal([]byte(content), &card); err != nil {
		return nil, false
	}
	if card.Type != "approve" {
		return nil, false
	}
	return &card, true
}
