package service

import (
	"context"
	"errors"
	"testing"

	"github.com/wooahyo/internal/model"
)

func TestChangeStatusAuthorOnly(t *testing.T) {
	f := newFixture()
	f.seedPost("p1", "seller", "apt1")

	_, err := f.transactions.ChangeStatus(context.Background(), "p1", "stranger", model.PostStatusReserved, strPtr("buyer"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestChangeStatusTransitionTable(t *testing.T) {
	cases := []struct {
		name string
		from model.PostStatus
		to   model.PostStatus
		ok   bool
	}{
		{"active to reserved", model.PostStatusActive, model.PostStatusReserved, true},
		{"reserved to active", model.PostStatusReserved, model.PostStatusActive, true},
		{"reserved to completed", model.PostStatusReserved, model.PostStatusCompleted, true},
		{"active to completed", model.PostStatusActive, model.PostStatusCompleted, false},
		{"completed to active", model.PostStatusCompleted, model.PostStatusActive, false},
		{"completed to reserved", model.PostStatusCompleted, model.PostStatusReserved, false},
		{"active to active", model.PostStatusActive, model.PostStatusActive, false},
		{"reserved to reserved", model.PostStatusReserved, model.PostStatusReserved, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			p := f.seedPost("p1", "seller", "apt1")
			p.Status = tc.from
			if tc.from != model.PostStatusActive {
				p.BuyerID = strPtr("buyer")
			}
			f.store.posts["p1"] = p

			_, err := f.transactions.ChangeStatus(context.Background(), "p1", "seller", tc.to, strPtr("buyer"))
			if tc.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestChangeStatusBuyerBinding(t *testing.T) {
	f := newFixture()
	f.seedPost("p1", "seller", "apt1")
	ctx := context.Background()

	// Reserving without a buyer is a validation error.
	_, err := f.transactions.ChangeStatus(ctx, "p1", "seller", model.PostStatusReserved, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The author cannot be their own buyer.
	_, err = f.transactions.ChangeStatus(ctx, "p1", "seller", model.PostStatusReserved, strPtr("seller"))
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Reserve binds the buyer.
	p, err := f.transactions.ChangeStatus(ctx, "p1", "seller", model.PostStatusReserved, strPtr("buyer"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if p.BuyerID == nil || *p.BuyerID != "buyer" {
		t.Fatalf("buyer not bound: %+v", p.BuyerID)
	}

	// Complete keeps the buyer and stamps completion.
	p, err = f.transactions.ChangeStatus(ctx, "p1", "seller", model.PostStatusCompleted, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if p.BuyerID == nil || *p.BuyerID != "buyer" {
		t.Fatal("completed post lost its buyer")
	}
	if p.CompletedAt == nil {
		t.Fatal("completed post missing completed_at")
	}
}

func TestChangeStatusCancelClearsBuyer(t *testing.T) {
	f := newFixture()
	f.seedPost("p1", "seller", "apt1")
	ctx := context.Background()

	if _, err := f.transactions.ChangeStatus(ctx, "p1", "seller", model.PostStatusReserved, strPtr("buyer")); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	p, err := f.transactions.ChangeStatus(ctx, "p1", "seller", model.PostStatusActive, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if p.BuyerID != nil {
		t.Fatalf("cancel must clear buyer, got %v", *p.BuyerID)
	}
}

func TestChangeStatusLostRaceIsConflict(t *testing.T) {
	f := newFixture()
	f.seedPost("p1", "seller", "apt1")
	ctx := context.Background()

	// Another request completes a transition between this request's read and
	// its conditional write.
	raced := false
	f.store.afterGetPost = func() {
		if raced {
			return
		}
		raced = true
		f.store.mu.Lock()
		f.store.posts["p1"].Status = model.PostStatusReserved
		f.store.posts["p1"].BuyerID = strPtr("other-buyer")
		f.store.mu.Unlock()
	}

	_, err := f.transactions.ChangeStatus(ctx, "p1", "seller", model.PostStatusReserved, strPtr("buyer"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The winner's state survives.
	p, _ := f.store.GetByID(ctx, "p1")
	if p.BuyerID == nil || *p.BuyerID != "other-buyer" {
		t.Fatalf("lost race overwrote winner: %+v", p.BuyerID)
	}
}

func TestHidePost(t *testing.T) {
	f := newFixture()
	f.seedPost("p1", "seller", "apt1")
	ctx := context.Background()

	if err := f.transactions.Hide(ctx, "p1", "stranger"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.transactions.Hide(ctx, "p1", "seller"); err != nil {
		t.Fatalf("hide: %v", err)
	}

	// Hidden posts disappear from listings and transitions.
	list, _ := f.posts.ListByApartment(ctx, "apt1", 10)
	if len(list) != 0 {
		t.Fatalf("hidden post still listed: %d", len(list))
	}
	if _, err := f.transactions.ChangeStatus(ctx, "p1", "seller", model.PostStatusReserved, strPtr("buyer")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for hidden post, got %v", err)
	}
}
