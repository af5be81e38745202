package model

import "time"

type RoomKind string

const (
	RoomKindPost     RoomKind = "post"
	RoomKindOpenChat RoomKind = "open_chat"
)

// ChatRoom binds exactly two participants to exactly one context:
// a post (marketplace chat) or an open chat (access-request chat).
type ChatRoom struct {
	ID               string     `json:"id"`
	PostID           *string    `json:"post_id,omitempty"`
	OpenChatID       *string    `json:"open_chat_id,omitempty"`
	BuyerID          string     `json:"buyer_id"`
	SellerID         string     `json:"seller_id"`
	IsActive         bool       `json:"is_active"`
	BuyerLastReadAt  *time.Time `json:"buyer_last_read_at,omitempty"`
	SellerLastReadAt *time.Time `json:"seller_last_read_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasParticipant reports whether userID is one of the two bound participants.
func (r *ChatRoom) HasParticipant(userID string) bool {
	return r.BuyerID == userID || r.SellerID == userID
}

// PeerOf returns the other participant's id, or "" for non-participants.
func (r *ChatRoom) PeerOf(userID string) string {
	switch userID {
	case r.BuyerID:
		return r.SellerID
	case r.SellerID:
		return r.BuyerID
	}
	return ""
}

// LastReadOf returns userID's own last-read stamp (nil means never read).
func (r *ChatRoom) LastReadOf(userID string) *time.Time {
	switch userID {
	case r.BuyerID:
		return r.BuyerLastReadAt
	case r.SellerID:
		return r.SellerLastReadAt
	}
	return nil
}

// RoomSummary is a chat room enriched for list views.
type RoomSummary struct {
	Room        ChatRoom `json:"room"`
	LastMessage *Message `json:"last_message,omitempty"`
	Unread      int      `json:"unread"`
}
