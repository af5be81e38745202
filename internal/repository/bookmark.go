package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

type BookmarkRepository struct {
	pool *pgxpool.Pool
}

func NewBookmarkRepository(pool *pgxpool.Pool) *BookmarkRepository {
	return &BookmarkRepository{pool: pool}
}

// Add inserts a bookmark and reports whether a new row was created.
func (r *BookmarkRepository) Add(ctx context.Context, b *model.Bookmark) (bool, error) {
	defer logger.DeferLogDuration("bookmark.Add", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO bookmarks (id, user_id, post_id, created_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT (user_id, post_id) DO NOTHING`,
		b.ID, b.UserID, b.PostID, b.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("bookmarkRepo.Add: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Remove deletes a bookmark and reports whether a row existed.
func (r *BookmarkRepository) Remove(ctx context.Context, userID, postID string) (bool, error) {
	defer logger.DeferLogDuration("bookmark.Remove", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND post_id = $2`, userID, postID,
	)
	if err != nil {
		return false, fmt.Errorf("bookmarkRepo.Remove: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *BookmarkRepository) Exists(ctx context.Context, userID, postID string) (bool, error) {
	defer logger.DeferLogDuration("bookmark.Exists", time.Now())()
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookmarks WHERE user_id = $1 AND post_id = $2)`,
		userID, postID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("bookmarkRepo.Exists: %w", err)
	}
	return ok, nil
}
