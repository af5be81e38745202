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

type OpenChatRepository struct {
	pool *pgxpool.Pool
}

func NewOpenChatRepository(pool *pgxpool.Pool) *OpenChatRepository {
	return &OpenChatRepository{pool: pool}
}

const openChatColumns = `id, apartment_id, creator_id, title, COALESCE(description, ''), chat_type,
	external_link, access_code, category, is_active, participant_count, view_count, created_at, updated_at`

func scanOpenChat(row pgx.Row) (*model.OpenChat, error) {
	oc := &model.OpenChat{}
	err := row.Scan(&oc.ID, &oc.ApartmentID, &oc.CreatorID, &oc.Title, &oc.Description, &oc.ChatType,
		&oc.ExternalLink, &oc.AccessCode, &oc.Category, &oc.IsActive, &oc.ParticipantCount, &oc.ViewCount,
		&oc.CreatedAt, &oc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return oc, nil
}

func (r *OpenChatRepository) Create(ctx context.Context, oc *model.OpenChat) error {
	defer logger.DeferLogDuration("openChat.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO open_chats (id, apartment_id, creator_id, title, description, chat_type,
		     external_link, access_code, category, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		oc.ID, oc.ApartmentID, oc.CreatorID, oc.Title, oc.Description, oc.ChatType,
		oc.ExternalLink, oc.AccessCode, oc.Category, oc.IsActive, oc.CreatedAt, oc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("openChatRepo.Create: %w", err)
	}
	return nil
}

func (r *OpenChatRepository) GetByID(ctx context.Context, id string) (*model.OpenChat, error) {
	defer logger.DeferLogDuration("openChat.GetByID", time.Now())()
	oc, err := scanOpenChat(r.pool.QueryRow(ctx,
		`SELECT `+openChatColumns+` FROM open_chats WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("openChatRepo.GetByID: %w", err)
	}
	return oc, nil
}

func (r *OpenChatRepository) Deactivate(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("openChat.Deactivate", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE open_chats SET is_active = false, updated_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("openChatRepo.Deactivate: %w", err)
	}
	return nil
}

func (r *OpenChatRepository) IncrementViewCount(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("openChat.IncrementViewCount", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE open_chats SET view_count = view_count + 1 WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("openChatRepo.IncrementViewCount: %w", err)
	}
	return nil
}

func (r *OpenChatRepository) ListByApartment(ctx context.Context, apartmentID string, limit int) ([]model.OpenChat, error) {
	defer logger.DeferLogDuration("openChat.ListByApartment", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+openChatColumns+` FROM open_chats
		 WHERE apartment_id = $1 AND is_active
		 ORDER BY created_at DESC
		 LIMIT $2`, apartmentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("openChatRepo.ListByApartment query: %w", err)
	}
	defer rows.Close()

	out := make([]model.OpenChat, 0, limit)
	for rows.Next() {
		oc, err := scanOpenChat(rows)
		if err != nil {
			return nil, fmt.Errorf("openChatRepo.ListByApartment scan: %w", err)
		}
		out = append(out, *oc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("openChatRepo.ListByApartment rows: %w", err)
	}
	return out, nil
}
