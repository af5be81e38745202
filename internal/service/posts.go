package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

// Posts is the marketplace post gateway: create, read, edit, list, bookmark.
// Status transitions live in Transactions.
type Posts struct {
	posts     PostStore
	bookmarks BookmarkStore
	now       func() time.Time
}

func NewPosts(posts PostStore, bookmarks BookmarkStore) *Posts {
	return &Posts{posts: posts, bookmarks: bookmarks, now: time.Now}
}

type PostInput struct {
	Type         model.PostType
	Title        string
	Description  string
	CategoryID   *string
	LocationID   *string
	Images       []string
	Price        *int64
	IsNegotiable bool
	Quantity     int
	Deposit      *int64
	RentalFee    *int64
	RentalPeriod *string
}

// validate enforces the type-specific required fields: sale needs a price,
// share needs a quantity, rental needs deposit and fee.
func (in *PostInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return validation("제목을 입력해주세요.")
	}
	switch in.Type {
	case model.PostTypeSale:
		if in.Price == nil || *in.Price < 0 {
			return validation("판매 가격을 입력해주세요.")
		}
	case model.PostTypeShare:
		if in.Quantity < 1 {
			return validation("나눔 수량을 입력해주세요.")
		}
	case model.PostTypeRental:
		if in.Deposit == nil || in.RentalFee == nil {
			return validation("대여 보증금과 대여료를 입력해주세요.")
		}
		if *in.Deposit < 0 || *in.RentalFee < 0 {
			return validation("대여 보증금과 대여료는 0원 이상이어야 합니다.")
		}
	default:
		return validation("게시글 유형이 올바르지 않습니다.")
	}
	return nil
}

func (s *Posts) Create(ctx context.Context, authorID, apartmentID string, in PostInput) (*model.Post, error) {
	defer logger.DeferLogDuration("posts.Create", time.Now())()

	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	p := &model.Post{
		ID:           uuid.NewString(),
		AuthorID:     authorID,
		ApartmentID:  apartmentID,
		Type:         in.Type,
		Status:       model.PostStatusActive,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		CategoryID:   in.CategoryID,
		LocationID:   in.LocationID,
		Images:       in.Images,
		Price:        in.Price,
		IsNegotiable: in.IsNegotiable,
		Quantity:     in.Quantity,
		Deposit:      in.Deposit,
		RentalFee:    in.RentalFee,
		RentalPeriod: in.RentalPeriod,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Type == model.PostTypeShare && p.Quantity < 1 {
		p.Quantity = 1
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a post and counts the view. Hidden posts stay visible to their
// author only.
func (s *Posts) Get(ctx context.Context, postID, requesterID string) (*model.Post, error) {
	defer logger.DeferLogDuration("posts.Get", time.Now())()

	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if p.IsHidden && p.AuthorID != requesterID {
		return nil, ErrNotFound
	}
	if err := s.posts.IncrementViewCount(ctx, postID); err != nil {
		logger.Errorf("posts.Get view count %s: %v", postID, err)
	}
	return p, nil
}

// Update edits content fields. Author only; type and status never change here.
func (s *Posts) Update(ctx context.Context, postID, requesterID string, in PostInput) (*model.Post, error) {
	defer logger.DeferLogDuration("posts.Update", time.Now())()

	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if p.AuthorID != requesterID {
		return nil, ErrForbidden
	}
	in.Type = p.Type
	if err := in.validate(); err != nil {
		return nil, err
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Description = strings.TrimSpace(in.Description)
	p.CategoryID = in.CategoryID
	p.LocationID = in.LocationID
	if in.Images != nil {
		p.Images = in.Images
	}
	p.Price = in.Price
	p.IsNegotiable = in.IsNegotiable
	p.Quantity = in.Quantity
	p.Deposit = in.Deposit
	p.RentalFee = in.RentalFee
	p.RentalPeriod = in.RentalPeriod
	p.UpdatedAt = s.now()

	if err := s.posts.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Posts) ListByApartment(ctx context.Context, apartmentID string, limit int) ([]model.Post, error) {
	defer logger.DeferLogDuration("posts.ListByApartment", time.Now())()
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.posts.ListByApartment(ctx, apartmentID, limit)
}

// ToggleBookmark flips the user's bookmark on a post and keeps the post's
// bookmark counter in step. Returns the resulting state.
func (s *Posts) ToggleBookmark(ctx context.Context, postID, userID string) (bool, error) {
	defer logger.DeferLogDuration("posts.ToggleBookmark", time.Now())()

	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, mapStoreErr(err)
	}
	if p.IsHidden {
		return false, ErrNotFound
	}

	added, err := s.bookmarks.Add(ctx, &model.Bookmark{
		ID:        uuid.NewString(),
		UserID:    userID,
		PostID:    postID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return false, err
	}
	if added {
		if err := s.posts.AddBookmarkCount(ctx, postID, 1); err != nil {
			logger.Errorf("posts.ToggleBookmark count %s: %v", postID, err)
		}
		return true, nil
	}

	removed, err := s.bookmarks.Remove(ctx, userID, postID)
	if err != nil {
		return false, err
	}
	if removed {
		if err := s.posts.AddBookmarkCount(ctx, postID, -1); err != nil {
			logger.Errorf("posts.ToggleBookmark count %s: %v", postID, err)
		}
	}
	return false, nil
}
