package service

import (
	"context"
	"time"

	"github.com/wooahyo/internal/model"
)

// Store interfaces abstract the persistence gateway so services run unchanged
// against the pgx repositories and against in-memory fakes in tests.

type PostStore interface {
	Create(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	Update(ctx context.Context, p *model.Post) error
	UpdateStatus(ctx context.Context, id string, from, to model.PostStatus, buyerID *string, completedAt *time.Time) (bool, error)
	Hide(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error
	IncrementChatCount(ctx context.Context, id string) error
	AddBookmarkCount(ctx context.Context, id string, delta int) error
	ListByApartment(ctx context.Context, apartmentID string, limit int) ([]model.Post, error)
}

type RoomStore interface {
	Create(ctx context.Context, c *model.ChatRoom) error
	GetByID(ctx context.Context, id string) (*model.ChatRoom, error)
	FindByPostBuyer(ctx context.Context, postID, buyerID string) (*model.ChatRoom, error)
	FindByOpenChatBuyer(ctx context.Context, openChatID, buyerID string) (*model.ChatRoom, error)
	ListForUser(ctx context.Context, userID string) ([]model.ChatRoom, error)
	SetLastRead(ctx context.Context, roomID, userID string, at time.Time) error
	Touch(ctx context.Context, roomID string, at time.Time) error
	DeactivateForOpenChat(ctx context.Context, openChatID string) error
	UnreadByRoom(ctx context.Context, userID string) (map[string]int, error)
	UnreadCount(ctx context.Context, roomID, userID string) (int, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByClientKey(ctx context.Context, roomID, clientKey string) (*model.Message, error)
	ListAsc(ctx context.Context, roomID string, limit int) ([]model.Message, error)
	Last(ctx context.Context, roomID string) (*model.Message, error)
}

type ReviewStore interface {
	Create(ctx context.Context, rv *model.Review) error
	Exists(ctx context.Context, postID, reviewerID string) (bool, error)
	ListForReviewee(ctx context.Context, revieweeID string) ([]model.Review, error)
}

type BookmarkStore interface {
	Add(ctx context.Context, b *model.Bookmark) (bool, error)
	Remove(ctx context.Context, userID, postID string) (bool, error)
	Exists(ctx context.Context, userID, postID string) (bool, error)
}

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
}

type OpenChatStore interface {
	Create(ctx context.Context, oc *model.OpenChat) error
	GetByID(ctx context.Context, id string) (*model.OpenChat, error)
	Deactivate(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error
	ListByApartment(ctx context.Context, apartmentID string, limit int) ([]model.OpenChat, error)
}
