package service

import (
	"context"
	"errors"
	"time"

	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

// Notices pushed into the buyer's chat room after a successful transition.
var statusNotices = map[model.PostStatus]string{
	model.PostStatusReserved:  "📌 예약이 시작되었습니다",
	model.PostStatusActive:    "↩️ 예약이 취소되었습니다",
	model.PostStatusCompleted: "✅ 거래가 완료되었습니다",
}

// StatusNotice returns the canned notice for a transition target status.
func StatusNotice(s model.PostStatus) (string, bool) {
	msg, ok := statusNotices[s]
	return msg, ok
}

// Transactions owns the post status lifecycle:
// active -> reserved -> completed, with reserved -> active as the only way back.
type Transactions struct {
	posts PostStore
	now   func() time.Time
}

func NewTransactions(posts PostStore) *Transactions {
	return &Transactions{posts: posts, now: time.Now}
}

// ChangeStatus moves a post to next on behalf of requesterID. Only the author
// may transition. Reserving requires buyerID (someone other than the author);
// cancelling a reservation clears the buyer; completing keeps the bound buyer
// and stamps completed_at. The write is a compare-and-swap on the previously
// read status, so a lost race surfaces as ErrConflict instead of silently
// overwriting a concurrent transition.
func (s *Transactions) ChangeStatus(ctx context.Context, postID, requesterID string, next model.PostStatus, buyerID *string) (*model.Post, error) {
	defer logger.DeferLogDuration("transactions.ChangeStatus", time.Now())()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if post.IsHidden {
		return nil, ErrNotFound
	}
	if post.AuthorID != requesterID {
		return nil, ErrForbidden
	}

	from := post.Status
	var nextBuyer *string
	var completedAt *time.Time

	switch {
	case from == model.PostStatusActive && next == model.PostStatusReserved:
		if buyerID == nil || *buyerID == "" {
			return nil, validation("예약자를 선택해주세요.")
		}
		if *buyerID == post.AuthorID {
			return nil, validation("본인을 예약자로 지정할 수 없습니다.")
		}
		nextBuyer = buyerID
	case from == model.PostStatusReserved && next == model.PostStatusActive:
		nextBuyer = nil
	case from == model.PostStatusReserved && next == model.PostStatusCompleted:
		nextBuyer = post.BuyerID
		t := s.now()
		completedAt = &t
	default:
		return nil, ErrInvalidTransition
	}

	ok, err := s.posts.UpdateStatus(ctx, postID, from, next, nextBuyer, completedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	post.Status = next
	post.BuyerID = nextBuyer
	post.CompletedAt = completedAt
	post.UpdatedAt = s.now()
	return post, nil
}

// Hide soft-deletes a post. Author only; the row stays for history.
func (s *Transactions) Hide(ctx context.Context, postID, requesterID string) error {
	defer logger.DeferLogDuration("transactions.Hide", time.Now())()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return mapStoreErr(err)
	}
	if post.AuthorID != requesterID {
		return ErrForbidden
	}
	return s.posts.Hide(ctx, postID)
}

func mapStoreErr(err error) error {
	if errors.Is(err, storeNotFound) {
		return ErrNotFound
	}
	return err
}
