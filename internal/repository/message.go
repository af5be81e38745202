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

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const messageColumns = `id, chat_room_id, sender_id, kind, content, is_system, client_key, created_at`

func scanMessage(row pgx.Row) (*model.Message, error) {
	m := &model.Message{}
	err := row.Scan(&m.ID, &m.ChatRoomID, &m.SenderID, &m.Kind, &m.Content, &m.IsSystem, &m.ClientKey, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("message.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, chat_room_id, sender_id, kind, content, is_system, client_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ChatRoomID, m.SenderID, m.Kind, m.Content, m.IsSystem, m.ClientKey, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.Create: %w", err)
	}
	return nil
}

// GetByClientKey serves retry dedup: the unique index on
// (chat_room_id, client_key) guarantees at most one row.
func (r *MessageRepository) GetByClientKey(ctx context.Context, roomID, clientKey string) (*model.Message, error) {
	defer logger.DeferLogDuration("message.GetByClientKey", time.Now())()
	m, err := scanMessage(r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE chat_room_id = $1 AND client_key = $2`, roomID, clientKey))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("messageRepo.GetByClientKey: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) ListAsc(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	defer logger.DeferLogDuration("message.ListAsc", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM (
		     SELECT `+messageColumns+` FROM messages
		     WHERE chat_room_id = $1
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) recent ORDER BY created_at ASC, id ASC`, roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("messageRepo.ListAsc query: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("messageRepo.ListAsc scan: %w", err)
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messageRepo.ListAsc rows: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepository) Last(ctx context.Context, roomID string) (*model.Message, error) {
	defer logger.DeferLogDuration("message.Last", time.Now())()
	m, err := scanMessage(r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE chat_room_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, roomID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("messageRepo.Last: %w", err)
	}
	return m, nil
}
