package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

// OpenChats is the minimal gateway around apartment open chats: enough to
// drive the private access-request flow and the approval card.
type OpenChats struct {
	openChats OpenChatStore
	rooms     RoomStore
	messages  *Messages
	now       func() time.Time
}

func NewOpenChats(openChats OpenChatStore, rooms RoomStore, messages *Messages) *OpenChats {
	return &OpenChats{openChats: openChats, rooms: rooms, messages: messages, now: time.Now}
}

type CreateOpenChatInput struct {
	ApartmentID  string
	CreatorID    string
	Title        string
	Description  string
	ChatType     model.OpenChatType
	ExternalLink *string
	AccessCode   *string
	Category     string
}

func (s *OpenChats) Create(ctx context.Context, in CreateOpenChatInput) (*model.OpenChat, error) {
	defer logger.DeferLogDuration("openChats.Create", time.Now())()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation("제목을 입력해주세요.")
	}
	if in.ChatType != model.OpenChatPublic && in.ChatType != model.OpenChatPrivate {
		return nil, validation("채팅방 유형이 올바르지 않습니다.")
	}
	if in.ChatType == model.OpenChatPrivate && emptyPtr(in.ExternalLink) && emptyPtr(in.AccessCode) {
		return nil, validation("비공개 채팅방은 링크 또는 참여 코드가 필요합니다.")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "기타"
	}

	var description *string
	if d := strings.TrimSpace(in.Description); d != "" {
		description = &d
	}

	now := s.now()
	oc := &model.OpenChat{
		ID:           uuid.NewString(),
		ApartmentID:  in.ApartmentID,
		CreatorID:    in.CreatorID,
		Title:        title,
		Description:  description,
		ChatType:     in.ChatType,
		ExternalLink: in.ExternalLink,
		AccessCode:   in.AccessCode,
		Category:     category,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.openChats.Create(ctx, oc); err != nil {
		return nil, err
	}
	return oc, nil
}

func (s *OpenChats) Get(ctx context.Context, id string) (*model.OpenChat, error) {
	defer logger.DeferLogDuration("openChats.Get", time.Now())()

	oc, err := s.openChats.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := s.openChats.IncrementViewCount(ctx, id); err != nil {
		logger.Errorf("openChats.Get view count %s: %v", id, err)
	}
	return oc, nil
}

func (s *OpenChats) ListByApartment(ctx context.Context, apartmentID string, limit int) ([]model.OpenChat, error) {
	defer logger.DeferLogDuration("openChats.ListByApartment", time.Now())()
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.openChats.ListByApartment(ctx, apartmentID, limit)
}

// Deactivate closes an open chat and all of its request rooms. Creator only.
func (s *OpenChats) Deactivate(ctx context.Context, id, requesterID string) error {
	defer logger.DeferLogDuration("openChats.Deactivate", time.Now())()

	oc, err := s.openChats.GetByID(ctx, id)
	if err != nil {
		return mapStoreErr(err)
	}
	if oc.CreatorID != requesterID {
		return ErrForbidden
	}
	if err := s.openChats.Deactivate(ctx, id); err != nil {
		return err
	}
	if err := s.rooms.DeactivateForOpenChat(ctx, id); err != nil {
		logger.Errorf("openChats.Deactivate rooms %s: %v", id, err)
	}
	return nil
}

// ApproveAccess posts the structured approval card into an access-request
// room. Only the open chat's creator (the room's seller side) may approve.
func (s *OpenChats) ApproveAccess(ctx context.Context, roomID, approverID string) (*model.Message, error) {
	defer logger.DeferLogDuration("openChats.ApproveAccess", time.Now())()

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if room.OpenChatID == nil {
		return nil, validation("오픈채팅 요청방이 아닙니다.")
	}
	if room.SellerID != approverID {
		return nil, ErrForbidden
	}

	oc, err := s.openChats.GetByID(ctx, *room.OpenChatID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	content, err := model.EncodeApprovalCard(oc.Title, oc.ExternalLink, oc.AccessCode)
	if err != nil {
		return nil, err
	}
	return s.messages.SendSystem(ctx, roomID, approverID, model.MessageKindApproval, content)
}

func emptyPtr(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}
