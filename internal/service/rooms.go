package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

// Rooms manages chat room lifecycle: creation is idempotent per
// (context, requester), and every room binds exactly two participants.
type Rooms struct {
	rooms     RoomStore
	posts     PostStore
	openChats OpenChatStore
	profiles  ProfileStore
	messages  *Messages
	now       func() time.Time
}

func NewRooms(rooms RoomStore, posts PostStore, openChats OpenChatStore, profiles ProfileStore, messages *Messages) *Rooms {
	return &Rooms{
		rooms:     rooms,
		posts:     posts,
		openChats: openChats,
		profiles:  profiles,
		messages:  messages,
		now:       time.Now,
	}
}

// GetOrCreateForPost returns the requester's room for a post, creating it on
// first contact. The requester becomes the buyer side; the post author is the
// seller side. Authors cannot open a room on their own post.
func (s *Rooms) GetOrCreateForPost(ctx context.Context, postID, requesterID string) (*model.ChatRoom, bool, error) {
	defer logger.DeferLogDuration("rooms.GetOrCreateForPost", time.Now())()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, false, mapStoreErr(err)
	}
	if post.IsHidden {
		return nil, false, ErrNotFound
	}
	if post.AuthorID == requesterID {
		return nil, false, ErrSelfChat
	}

	if room, err := s.rooms.FindByPostBuyer(ctx, postID, requesterID); err == nil {
		return room, false, nil
	} else if !errors.Is(err, storeNotFound) {
		return nil, false, err
	}

	now := s.now()
	room := &model.ChatRoom{
		ID:               uuid.NewString(),
		PostID:           &postID,
		BuyerID:          requesterID,
		SellerID:         post.AuthorID,
		IsActive:         true,
		BuyerLastReadAt:  &now,
		SellerLastReadAt: &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		// A concurrent first contact may have won the unique index race.
		if prev, lookupErr := s.rooms.FindByPostBuyer(ctx, postID, requesterID); lookupErr == nil {
			return prev, false, nil
		}
		return nil, false, err
	}

	if err := s.posts.IncrementChatCount(ctx, postID); err != nil {
		logger.Errorf("rooms.GetOrCreateForPost chat count %s: %v", postID, err)
	}
	return room, true, nil
}

// GetOrCreateForOpenChat returns the requester's access-request room for a
// private open chat, creating it on first request. Unlike post rooms, read
// stamps start null (nothing has been read) and a request notice is injected
// so the host sees who is asking.
func (s *Rooms) GetOrCreateForOpenChat(ctx context.Context, openChatID, requesterID string) (*model.ChatRoom, bool, error) {
	defer logger.DeferLogDuration("rooms.GetOrCreateForOpenChat", time.Now())()

	oc, err := s.openChats.GetByID(ctx, openChatID)
	if err != nil {
		return nil, false, mapStoreErr(err)
	}
	if !oc.IsActive {
		return nil, false, ErrNotFound
	}
	if oc.CreatorID == requesterID {
		return nil, false, ErrSelfChat
	}

	if room, err := s.rooms.FindByOpenChatBuyer(ctx, openChatID, requesterID); err == nil {
		return room, false, nil
	} else if !errors.Is(err, storeNotFound) {
		return nil, false, err
	}

	now := s.now()
	room := &model.ChatRoom{
		ID:         uuid.NewString(),
		OpenChatID: &openChatID,
		BuyerID:    requesterID,
		SellerID:   oc.CreatorID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		if prev, lookupErr := s.rooms.FindByOpenChatBuyer(ctx, openChatID, requesterID); lookupErr == nil {
			return prev, false, nil
		}
		return nil, false, err
	}

	nickname := "이웃"
	if p, err := s.profiles.GetByID(ctx, requesterID); err == nil {
		nickname = p.Nickname
	}
	notice := fmt.Sprintf("%s님이 \"%s\" 오픈채팅 참여를 요청했습니다.", nickname, oc.Title)
	if _, err := s.messages.SendSystem(ctx, room.ID, requesterID, model.MessageKindNotice, notice); err != nil {
		logger.Errorf("rooms.GetOrCreateForOpenChat request notice %s: %v", room.ID, err)
	}
	return room, true, nil
}

// FindForPost locates the room bound to (post, buyer) regardless of who asks.
// Used when the author pushes a status notice into the buyer's room.
func (s *Rooms) FindForPost(ctx context.Context, postID, buyerID string) (*model.ChatRoom, error) {
	defer logger.DeferLogDuration("rooms.FindForPost", time.Now())()

	room, err := s.rooms.FindByPostBuyer(ctx, postID, buyerID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return room, nil
}

// Get returns a room to one of its participants. Outsiders get the same
// ErrNotFound as for a missing room, so the lookup never reveals whether a
// given room id exists.
func (s *Rooms) Get(ctx context.Context, roomID, requesterID string) (*model.ChatRoom, error) {
	defer logger.DeferLogDuration("rooms.Get", time.Now())()

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !room.HasParticipant(requesterID) {
		return nil, ErrNotFound
	}
	return room, nil
}

// MarkRead stamps the caller's own read position. Callers who are not
// participants are silently ignored; one side can never move the other's stamp.
func (s *Rooms) MarkRead(ctx context.Context, roomID, userID string) error {
	defer logger.DeferLogDuration("rooms.MarkRead", time.Now())()
	return s.rooms.SetLastRead(ctx, roomID, userID, s.now())
}

// Unread counts the peer's messages the user has not read yet. A null stamp
// means everything from the peer is unread.
func (s *Rooms) Unread(ctx context.Context, roomID, userID string) (int, error) {
	defer logger.DeferLogDuration("rooms.Unread", time.Now())()
	return s.rooms.UnreadCount(ctx, roomID, userID)
}

// ListForUser returns the user's inbox: active rooms newest-activity-first,
// each with its last message and unread count. Unread counts come from one
// grouped query, not one query per room.
func (s *Rooms) ListForUser(ctx context.Context, userID string) ([]model.RoomSummary, error) {
	defer logger.DeferLogDuration("rooms.ListForUser", time.Now())()

	rooms, err := s.rooms.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.rooms.UnreadByRoom(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		sum := model.RoomSummary{Room: room, Unread: unread[room.ID]}
		last, err := s.messages.last(ctx, room.ID)
		if err == nil {
			sum.LastMessage = last
		} else if !errors.Is(err, storeNotFound) {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}
