package model

import "time"

type PostType string

const (
	PostTypeSale   PostType = "sale"
	PostTypeShare  PostType = "share"
	PostTypeRental PostType = "rental"
)

type PostStatus string

// Transaction states. Soft-deleted posts keep their last status and are
// flagged hidden instead of entering a fourth state.
const (
	PostStatusActive    PostStatus = "active"
	PostStatusReserved  PostStatus = "reserved"
	PostStatusCompleted PostStatus = "completed"
)

type Post struct {
	ID           string     `json:"id"`
	AuthorID     string     `json:"author_id"`
	ApartmentID  string     `json:"apartment_id"`
	Type         PostType   `json:"type"`
	Status       PostStatus `json:"status"`
	IsHidden     bool       `json:"is_hidden"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CategoryID   *string    `json:"category_id,omitempty"`
	LocationID   *string    `json:"location_id,omitempty"`
	Images       []string   `json:"images"`

	// Type-specific fields: sale uses Price/IsNegotiable, share uses
	// Quantity, rental uses Deposit/RentalFee/RentalPeriod.
	Price        *int64  `json:"price,omitempty"`
	IsNegotiable bool    `json:"is_negotiable"`
	Quantity     int     `json:"quantity"`
	Deposit      *int64  `json:"deposit,omitempty"`
	RentalFee    *int64  `json:"rental_fee,omitempty"`
	RentalPeriod *string `json:"rental_period,omitempty"`

	// Transaction fields, written only by the state machine.
	BuyerID     *string    `json:"buyer_id,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ViewCount     int `json:"view_count"`
	ChatCount     int `json:"chat_count"`
	BookmarkCount int `json:"bookmark_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
