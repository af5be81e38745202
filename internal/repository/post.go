package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/model"
)

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

const postColumns = `id, author_id, apartment_id, type, status, is_hidden, title, description,
	category_id, location_id, images, price, is_negotiable, quantity, deposit, rental_fee, rental_period,
	buyer_id, completed_at, view_count, chat_count, bookmark_count, created_at, updated_at`

func scanPost(row pgx.Row) (*model.Post, error) {
	p := &model.Post{}
	err := row.Scan(&p.ID, &p.AuthorID, &p.ApartmentID, &p.Type, &p.Status, &p.IsHidden, &p.Title, &p.Description,
		&p.CategoryID, &p.LocationID, &p.Images, &p.Price, &p.IsNegotiable, &p.Quantity, &p.Deposit, &p.RentalFee, &p.RentalPeriod,
		&p.BuyerID, &p.CompletedAt, &p.ViewCount, &p.ChatCount, &p.BookmarkCount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, p *model.Post) error {
	defer logger.DeferLogDuration("post.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO posts (id, author_id, apartment_id, type, status, title, description,
		     category_id, location_id, images, price, is_negotiable, quantity, deposit, rental_fee, rental_period,
		     created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.ID, p.AuthorID, p.ApartmentID, p.Type, p.Status, p.Title, p.Description,
		p.CategoryID, p.LocationID, p.Images, p.Price, p.IsNegotiable, p.Quantity, p.Deposit, p.RentalFee, p.RentalPeriod,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postRepo.Create: %w", err)
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	defer logger.DeferLogDuration("post.GetByID", time.Now())()
	p, err := scanPost(r.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postRepo.GetByID: %w", err)
	}
	return p, nil
}

func (r *PostRepository) Update(ctx context.Context, p *model.Post) error {
	defer logger.DeferLogDuration("post.Update", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE posts SET title = $1, description = $2, category_id = $3, location_id = $4, images = $5,
		     price = $6, is_negotiable = $7, quantity = $8, deposit = $9, rental_fee = $10, rental_period = $11,
		     updated_at = $12
		 WHERE id = $13`,
		p.Title, p.Description, p.CategoryID, p.LocationID, p.Images,
		p.Price, p.IsNegotiable, p.Quantity, p.Deposit, p.RentalFee, p.RentalPeriod,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("postRepo.Update: %w", err)
	}
	return nil
}

// UpdateStatus applies a status transition only if the row is still in the
// expected state. Returns false when the conditional update matched no row,
// which means a concurrent transition won.
func (r *PostRepository) UpdateStatus(ctx context.Context, id string, from, to model.PostStatus, buyerID *string, completedAt *time.Time) (bool, error) {
	defer logger.DeferLogDuration("post.UpdateStatus", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET status = $1, buyer_id = $2, completed_at = $3, updated_at = now()
		 WHERE id = $4 AND status = $5 AND is_hidden = false`,
		to, buyerID, completedAt, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("postRepo.UpdateStatus: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Hide soft-deletes a post. The row is never physically removed.
func (r *PostRepository) Hide(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("post.Hide", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE posts SET is_hidden = true, updated_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("postRepo.Hide: %w", err)
	}
	return nil
}

func (r *PostRepository) IncrementViewCount(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("post.IncrementViewCount", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE posts SET view_count = view_count + 1 WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("postRepo.IncrementViewCount: %w", err)
	}
	return nil
}

func (r *PostRepository) IncrementChatCount(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("post.IncrementChatCount", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE posts SET chat_count = chat_count + 1 WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("postRepo.IncrementChatCount: %w", err)
	}
	return nil
}

func (r *PostRepository) AddBookmarkCount(ctx context.Context, id string, delta int) error {
	defer logger.DeferLogDuration("post.AddBookmarkCount", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE posts SET bookmark_count = GREATEST(bookmark_count + $1, 0) WHERE id = $2`, delta, id,
	)
	if err != nil {
		return fmt.Errorf("postRepo.AddBookmarkCount: %w", err)
	}
	return nil
}

// ListByApartment returns visible posts for an apartment, newest first.
func (r *PostRepository) ListByApartment(ctx context.Context, apartmentID string, limit int) ([]model.Post, error) {
	defer logger.DeferLogDuration("post.ListByApartment", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE apartment_id = $1 AND is_hidden = false
		 ORDER BY created_at DESC
		 LIMIT $2`, apartmentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postRepo.ListByApartment query: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("postRepo.ListByApartment scan: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postRepo.ListByApartment rows: %w", err)
	}
	return posts, nil
}
