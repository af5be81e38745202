package model

import "time"

type OpenChatType string

const (
	OpenChatPublic  OpenChatType = "public"
	OpenChatPrivate OpenChatType = "private"
)

// OpenChat is a peer-organized community chat. Private chats gate entry
// behind an access request approved by the creator.
type OpenChat struct {
	ID               string       `json:"id"`
	ApartmentID      string       `json:"apartment_id"`
	CreatorID        string       `json:"creator_id"`
	Title            string       `json:"title"`
	Description      *string      `json:"description,omitempty"`
	ChatType         OpenChatType `json:"chat_type"`
	ExternalLink     *string      `json:"external_link,omitempty"`
	AccessCode       *string      `json:"access_code,omitempty"`
	Category         string       `json:"category"`
	IsActive         bool         `json:"is_active"`
	ParticipantCount int          `json:"participant_count"`
	ViewCount        int          `json:"view_count"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
