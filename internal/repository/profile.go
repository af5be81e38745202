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

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	defer logger.DeferLogDuration("profile.GetByID", time.Now())()
	p := &model.Profile{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, nickname, avatar_url, apartment_id, role, created_at, updated_at
		 FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Nickname, &p.AvatarURL, &p.ApartmentID, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profileRepo.GetByID: %w", err)
	}
	return p, nil
}

// Upsert keeps the local profile row in sync with the identity provider.
func (r *ProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	defer logger.DeferLogDuration("profile.Upsert", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, nickname, avatar_url, apartment_id, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		     nickname = EXCLUDED.nickname,
		     avatar_url = EXCLUDED.avatar_url,
		     apartment_id = EXCLUDED.apartment_id,
		     updated_at = EXCLUDED.updated_at`,
		p.ID, p.Nickname, p.AvatarURL, p.ApartmentID, p.Role, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("profileRepo.Upsert: %w", err)
	}
	return nil
}
