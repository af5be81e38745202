package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *model.Review) error {
	defer logger.DeferLogDuration("review.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reviews (id, post_id, reviewer_id, reviewee_id, rating, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rv.ID, rv.PostID, rv.ReviewerID, rv.RevieweeID, rv.Rating, rv.Content, rv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("reviewRepo.Create: %w", err)
	}
	return nil
}

func (r *ReviewRepository) Exists(ctx context.Context, postID, reviewerID string) (bool, error) {
	defer logger.DeferLogDuration("review.Exists", time.Now())()
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE post_id = $1 AND reviewer_id = $2)`,
		postID, reviewerID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("reviewRepo.Exists: %w", err)
	}
	return ok, nil
}

func (r *ReviewRepository) ListForReviewee(ctx context.Context, revieweeID string) ([]model.Review, error) {
	defer logger.DeferLogDuration("review.ListForReviewee", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, post_id, reviewer_id, reviewee_id, rating, COALESCE(content, ''), created_at
		 FROM reviews WHERE reviewee_id = $1
		 ORDER BY created_at DESC`, revieweeID,
	)
	if err != nil {
		return nil, fmt.Errorf("reviewRepo.ListForReviewee query: %w", err)
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.PostID, &rv.ReviewerID, &rv.RevieweeID, &rv.Rating, &rv.Content, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("reviewRepo.ListForReviewee scan: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reviewRepo.ListForReviewee rows: %w", err)
	}
	return out, nil
}
