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

type ChatRoomRepository struct {
	pool *pgxpool.Pool
}

func NewChatRoomRepository(pool *pgxpool.Pool) *ChatRoomRepository {
	return &ChatRoomRepository{pool: pool}
}

const roomColumns = `id, post_id, open_chat_id, buyer_id, seller_id, is_active,
	buyer_last_read_at, seller_last_read_at, created_at, updated_at`

func scanRoom(row pgx.Row) (*model.ChatRoom, error) {
	c := &model.ChatRoom{}
	err := row.Scan(&c.ID, &c.PostID, &c.OpenChatID, &c.BuyerID, &c.SellerID, &c.IsActive,
		&c.BuyerLastReadAt, &c.SellerLastReadAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChatRoomRepository) Create(ctx context.Context, c *model.ChatRoom) error {
	defer logger.DeferLogDuration("chatRoom.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_rooms (id, post_id, open_chat_id, buyer_id, seller_id, is_active,
		     buyer_last_read_at, seller_last_read_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.PostID, c.OpenChatID, c.BuyerID, c.SellerID, c.IsActive,
		c.BuyerLastReadAt, c.SellerLastReadAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("chatRoomRepo.Create: %w", err)
	}
	return nil
}

func (r *ChatRoomRepository) GetByID(ctx context.Context, id string) (*model.ChatRoom, error) {
	defer logger.DeferLogDuration("chatRoom.GetByID", time.Now())()
	c, err := scanRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("chatRoomRepo.GetByID: %w", err)
	}
	return c, nil
}

// FindByPostBuyer is the dedup lookup: at most one room per (post, buyer).
func (r *ChatRoomRepository) FindByPostBuyer(ctx context.Context, postID, buyerID string) (*model.ChatRoom, error) {
	defer logger.DeferLogDuration("chatRoom.FindByPostBuyer", time.Now())()
	c, err := scanRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE post_id = $1 AND buyer_id = $2`, postID, buyerID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("chatRoomRepo.FindByPostBuyer: %w", err)
	}
	return c, nil
}

func (r *ChatRoomRepository) FindByOpenChatBuyer(ctx context.Context, openChatID, buyerID string) (*model.ChatRoom, error) {
	defer logger.DeferLogDuration("chatRoom.FindByOpenChatBuyer", time.Now())()
	c, err := scanRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE open_chat_id = $1 AND buyer_id = $2`, openChatID, buyerID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("chatRoomRepo.FindByOpenChatBuyer: %w", err)
	}
	return c, nil
}

func (r *ChatRoomRepository) ListForUser(ctx context.Context, userID string) ([]model.ChatRoom, error) {
	defer logger.DeferLogDuration("chatRoom.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM chat_rooms
		 WHERE (buyer_id = $1 OR seller_id = $1) AND is_active
		 ORDER BY updated_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRoomRepo.ListForUser query: %w", err)
	}
	defer rows.Close()

	var out []model.ChatRoom
	for rows.Next() {
		c, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("chatRoomRepo.ListForUser scan: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRoomRepo.ListForUser rows: %w", err)
	}
	return out, nil
}

// SetLastRead updates only the caller's own read stamp. A user who is not a
// participant matches no row and the call is a no-op.
func (r *ChatRoomRepository) SetLastRead(ctx context.Context, roomID, userID string, at time.Time) error {
	defer logger.DeferLogDuration("chatRoom.SetLastRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE chat_rooms SET
		     buyer_last_read_at  = CASE WHEN buyer_id  = $2 THEN $3 ELSE buyer_last_read_at  END,
		     seller_last_read_at = CASE WHEN seller_id = $2 THEN $3 ELSE seller_last_read_at END
		 WHERE id = $1 AND (buyer_id = $2 OR seller_id = $2)`,
		roomID, userID, at,
	)
	if err != nil {
		return fmt.Errorf("chatRoomRepo.SetLastRead: %w", err)
	}
	return nil
}

// Touch bumps updated_at so the room sorts to the top of the inbox.
func (r *ChatRoomRepository) Touch(ctx context.Context, roomID string, at time.Time) error {
	defer logger.DeferLogDuration("chatRoom.Touch", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE chat_rooms SET updated_at = $2 WHERE id = $1`, roomID, at,
	)
	if err != nil {
		return fmt.Errorf("chatRoomRepo.Touch: %w", err)
	}
	return nil
}

func (r *ChatRoomRepository) DeactivateForOpenChat(ctx context.Context, openChatID string) error {
	defer logger.DeferLogDuration("chatRoom.DeactivateForOpenChat", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE chat_rooms SET is_active = false, updated_at = now() WHERE open_chat_id = $1`, openChatID,
	)
	if err != nil {
		return fmt.Errorf("chatRoomRepo.DeactivateForOpenChat: %w", err)
	}
	return nil
}

// UnreadByRoom computes unread counts for all of a user's active rooms in one
// query: messages from the peer newer than the user's own read stamp, all of
// them when the stamp is null.
func (r *ChatRoomRepository) UnreadByRoom(ctx context.Context, userID string) (map[string]int, error) {
	defer logger.DeferLogDuration("chatRoom.UnreadByRoom", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT m.chat_room_id, COUNT(*)
		 FROM messages m
		 JOIN chat_rooms c ON c.id = m.chat_room_id
		 WHERE (c.buyer_id = $1 OR c.seller_id = $1) AND c.is_active
		   AND m.sender_id <> $1
		   AND m.created_at > COALESCE(
		       CASE WHEN c.buyer_id = $1 THEN c.buyer_last_read_at ELSE c.seller_last_read_at END,
		       '-infinity'::timestamptz)
		 GROUP BY m.chat_room_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRoomRepo.UnreadByRoom query: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var roomID string
		var n int
		if err := rows.Scan(&roomID, &n); err != nil {
			return nil, fmt.Errorf("chatRoomRepo.UnreadByRoom scan: %w", err)
		}
		counts[roomID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRoomRepo.UnreadByRoom rows: %w", err)
	}
	return counts, nil
}

func (r *ChatRoomRepository) UnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	defer logger.DeferLogDuration("chatRoom.UnreadCount", time.Now())()
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM messages m
		 JOIN chat_rooms c ON c.id = m.chat_room_id
		 WHERE m.chat_room_id = $1
		   AND m.sender_id <> $2
		   AND m.created_at > COALESCE(
		       CASE WHEN c.buyer_id = $2 THEN c.buyer_last_read_at ELSE c.seller_last_read_at END,
		       '-infinity'::timestamptz)`,
		roomID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("chatRoomRepo.UnreadCount: %w", err)
	}
	return n, nil
}
