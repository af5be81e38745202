package service

import (
	"context"
	"errors"
	"testing"

	"github.com/wooahyo/internal/model"
)

func TestOpenChatCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var ve *ValidationError
	_, err := f.openChats.Create(ctx, CreateOpenChatInput{
		ApartmentID: "apt1", CreatorID: "host", Title: "  ", ChatType: model.OpenChatPublic,
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error on empty title, got %v", err)
	}

	// Private chats need a link or a code.
	_, err = f.openChats.Create(ctx, CreateOpenChatInput{
		ApartmentID: "apt1", CreatorID: "host", Title: "배드민턴", ChatType: model.OpenChatPrivate,
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error on private without link/code, got %v", err)
	}

	oc, err := f.openChats.Create(ctx, CreateOpenChatInput{
		ApartmentID: "apt1", CreatorID: "host", Title: "배드민턴",
		ChatType: model.OpenChatPrivate, AccessCode: strPtr("7777"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if oc.Category != "기타" {
		t.Fatalf("empty category must default, got %q", oc.Category)
	}
}

func TestApproveAccess(t *testing.T) {
	f := newFixture()
	f.seedProfile("guest", "이웃2")
	f.seedOpenChat("oc1", "host", "apt1", "독서모임", true)
	ctx := context.Background()

	room, _, err := f.rooms.GetOrCreateForOpenChat(ctx, "oc1", "guest")
	if err != nil {
		t.Fatalf("request room: %v", err)
	}

	// Only the host may approve.
	if _, err := f.openChats.ApproveAccess(ctx, room.ID, "guest"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	msg, err := f.openChats.ApproveAccess(ctx, room.ID, "host")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if msg.Kind != model.MessageKindApproval || !msg.IsSystem {
		t.Fatalf("wrong approval shape: %+v", msg)
	}

	card, ok := model.DecodeApprovalCard(msg.Content)
	if !ok {
		t.Fatalf("approval content not a card: %q", msg.Content)
	}
	if card.Title != "독서모임" || card.Link == nil || card.Code == nil || *card.Code != "0423" {
		t.Fatalf("card fields wrong: %+v", card)
	}
}

func TestApproveAccessPostRoomRejected(t *testing.T) {
	f := newFixture()
	f.seedPost("p1", "seller", "apt1")
	ctx := context.Background()

	room, _, _ := f.rooms.GetOrCreateForPost(ctx, "p1", "buyer")
	var ve *ValidationError
	if _, err := f.openChats.ApproveAccess(ctx, room.ID, "seller"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error on post room, got %v", err)
	}
}

func TestDeactivateClosesRequestRooms(t *testing.T) {
	f := newFixture()
	f.seedProfile("guest", "이웃3")
	f.seedOpenChat("oc1", "host", "apt1", "축구", true)
	ctx := context.Background()

	room, _, _ := f.rooms.GetOrCreateForOpenChat(ctx, "oc1", "guest")

	if err := f.openChats.Deactivate(ctx, "oc1", "guest"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.openChats.Deactivate(ctx, "oc1", "host"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := f.rooms.Get(ctx, room.ID, "guest")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.IsActive {
		t.Fatal("request room still active after open chat deactivation")
	}
	// Sending into a closed room fails.
	var ve *ValidationError
	if _, err := f.messages.Send(ctx, room.ID, "guest", "아직 되나요?", nil); !errors.As(err, &ve) {
		t.Fatalf("expected validation error on closed room, got %v", err)
	}
	// Closed rooms leave the inbox.
	sums, _ := f.rooms.ListForUser(ctx, "guest")
	if len(sums) != 0 {
		t.Fatalf("closed room still listed: %d", len(sums))
	}
	// Requesting again against the inactive open chat fails.
	if _, _, err := f.rooms.GetOrCreateForOpenChat(ctx, "oc1", "guest2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenChatDescriptionNormalized(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	oc, err := f.openChats.Create(ctx, CreateOpenChatInput{
		ApartmentID: "apt1", CreatorID: "host", Title: "테니스",
		Description: "  주말 아침 테니스  ", ChatType: model.OpenChatPublic,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if oc.Description == nil || *oc.Description != "주말 아침 테니스" {
		t.Fatalf("description not trimmed: %v", oc.Description)
	}

	oc2, err := f.openChats.Create(ctx, CreateOpenChatInput{
		ApartmentID: "apt1", CreatorID: "host", Title: "축구",
		Description: "   ", ChatType: model.OpenChatPublic,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if oc2.Description != nil {
		t.Fatalf("blank description should be stored as null, got %q", *oc2.Description)
	}
}
