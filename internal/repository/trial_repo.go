package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
)

type TrialRepository struct {
	pool *pgxpool.Pool
}

func NewTrialRepository(pool *pgxpool.Pool) *TrialRepository {
	return &TrialRepository{pool: pool}
}

// Get retrieves the free-trial window for a user
func (r *TrialRepository) Get(ctx context.Context, userID string) (*models.FreeTrialWindow, error) {
	query := `
		SELECT user_id, used_at
		FROM botdeploy.free_trials
		WHERE user_id = $1
	`
	w := &models.FreeTrialWindow{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(&w.UserID, &w.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get free trial: %w", err)
	}
	return w, nil
}

// RecordUse upserts the trial window for a user. One row per user:
// subsequent eligible trials update used_at rather than add rows.
func (r *TrialRepository) RecordUse(ctx context.Context, userID string) error {
	query := `
		INSERT INTO botdeploy.free_trials (user_id, used_at)
		VALUES ($1, NOW())
		ON CONFLICT (user_id) DO UPDATE SET used_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("record free trial use: %w", err)
	}
	return nil
}
