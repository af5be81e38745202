package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

const maxMessageLen = 2000

// Messages is the append-only chat log. Messages are never edited or deleted.
type Messages struct {
	messages MessageStore
	rooms    RoomStore
	now      func() time.Time
}

func NewMessages(messages MessageStore, rooms RoomStore) *Messages {
	return &Messages{messages: messages, rooms: rooms, now: time.Now}
}

// Send appends a user message. Participants only; content is trimmed and must
// be non-empty. When the client supplies an idempotency key, a retry of the
// same (room, key) returns the already stored message instead of a duplicate.
// A successful append also bumps the room's updated_at and the sender's own
// read stamp; failures there are logged, never returned.
func (s *Messages) Send(ctx context.Context, roomID, senderID, content string, clientKey *string) (*model.Message, error) {
	defer logger.DeferLogDuration("messages.Send", time.Now())()

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !room.HasParticipant(senderID) {
		return nil, ErrForbidden
	}
	if !room.IsActive {
		return nil, validation("종료된 채팅방입니다.")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validation("메시지 내용을 입력해주세요.")
	}
	if len(content) > maxMessageLen {
		return nil, validation("메시지가 너무 깁니다.")
	}

	if clientKey != nil && *clientKey != "" {
		if prev, err := s.messages.GetByClientKey(ctx, roomID, *clientKey); err == nil {
			return prev, nil
		} else if !errors.Is(err, storeNotFound) {
			return nil, err
		}
	} else {
		clientKey = nil
	}

	msg := &model.Message{
		ID:         uuid.NewString(),
		ChatRoomID: roomID,
		SenderID:   senderID,
		Kind:       model.MessageKindText,
		Content:    content,
		ClientKey:  clientKey,
		CreatedAt:  s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		// A concurrent retry may have won the unique index race.
		if clientKey != nil {
			if prev, lookupErr := s.messages.GetByClientKey(ctx, roomID, *clientKey); lookupErr == nil {
				return prev, nil
			}
		}
		return nil, err
	}

	s.afterAppend(ctx, roomID, senderID, msg.CreatedAt)
	return msg, nil
}

// SendSystem appends a system message (notice or approval card) on behalf of
// actorID. System messages bypass the participant check.
func (s *Messages) SendSystem(ctx context.Context, roomID, actorID string, kind model.MessageKind, content string) (*model.Message, error) {
	defer logger.DeferLogDuration("messages.SendSystem", time.Now())()

	if kind != model.MessageKindNotice && kind != model.MessageKindApproval {
		return nil, validation("지원하지 않는 메시지 유형입니다.")
	}
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, mapStoreErr(err)
	}

	msg := &model.Message{
		ID:         uuid.NewString(),
		ChatRoomID: roomID,
		SenderID:   actorID,
		Kind:       kind,
		Content:    content,
		IsSystem:   true,
		CreatedAt:  s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.rooms.Touch(ctx, roomID, msg.CreatedAt); err != nil {
		logger.Errorf("messages.SendSystem touch room %s: %v", roomID, err)
	}
	return msg, nil
}

// List returns messages oldest-first. Non-participants get an empty history,
// not an error: the history must not leak whether the room exists.
func (s *Messages) List(ctx context.Context, roomID, requesterID string, limit int) ([]model.Message, error) {
	defer logger.DeferLogDuration("messages.List", time.Now())()

	if limit <= 0 || limit > 100 {
		limit = 100
	}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, storeNotFound) {
			return []model.Message{}, nil
		}
		return nil, err
	}
	if !room.HasParticipant(requesterID) {
		return []model.Message{}, nil
	}
	return s.messages.ListAsc(ctx, roomID, limit)
}

func (s *Messages) last(ctx context.Context, roomID string) (*model.Message, error) {
	return s.messages.Last(ctx, roomID)
}

func (s *Messages) afterAppend(ctx context.Context, roomID, senderID string, at time.Time) {
	if err := s.rooms.Touch(ctx, roomID, at); err != nil {
		logger.Errorf("messages.Send touch room %s: %v", roomID, err)
	}
	if err := s.rooms.SetLastRead(ctx, roomID, senderID, at); err != nil {
		logger.Errorf("messages.Send mark read room %s: %v", roomID, err)
	}
}
