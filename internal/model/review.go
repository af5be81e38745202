package model

import "time"

// Review is issued once per (post, reviewer) after the transaction completes,
// by either party, targeting the other.
type Review struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Content    *string   `json:"content,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
