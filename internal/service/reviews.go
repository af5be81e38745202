package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

// Reviews lets the two parties of a completed transaction rate each other,
// once per post each.
type Reviews struct {
	reviews ReviewStore
	posts   PostStore
	now     func() time.Time
}

func NewReviews(reviews ReviewStore, posts PostStore) *Reviews {
	return &Reviews{reviews: reviews, posts: posts, now: time.Now}
}

func (s *Reviews) Create(ctx context.Context, postID, reviewerID string, rating int, content string) (*model.Review, error) {
	defer logger.DeferLogDuration("reviews.Create", time.Now())()

	if rating < 1 || rating > 5 {
		return nil, validation("별점은 1점부터 5점까지 선택할 수 있습니다.")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if post.Status != model.PostStatusCompleted {
		return nil, validation("거래가 완료된 후에 후기를 작성할 수 있습니다.")
	}
	if post.BuyerID == nil {
		return nil, validation("거래 상대가 없는 게시글입니다.")
	}

	var revieweeID string
	switch reviewerID {
	case post.AuthorID:
		revieweeID = *post.BuyerID
	case *post.BuyerID:
		revieweeID = post.AuthorID
	default:
		return nil, ErrForbidden
	}

	exists, err := s.reviews.Exists(ctx, postID, reviewerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, validation("이미 후기를 작성했습니다.")
	}

	var body *string
	if c := strings.TrimSpace(content); c != "" {
		body = &c
	}

	rv := &model.Review{
		ID:         uuid.NewString(),
		PostID:     postID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Rating:     rating,
		Content:    body,
		CreatedAt:  s.now(),
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// ListForUser returns the reviews a user has received, newest first.
func (s *Reviews) ListForUser(ctx context.Context, userID string) ([]model.Review, error) {
	defer logger.DeferLogDuration("reviews.ListForUser", time.Now())()
	return s.reviews.ListForReviewee(ctx, userID)
}
