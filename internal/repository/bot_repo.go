package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
)

type BotRepository struct {
	pool *pgxpool.Pool
}

func NewBotRepository(pool *pgxpool.Pool) *BotRepository {
	return &BotRepository{pool: pool}
}

// Create inserts a new owned-bot record
func (r *BotRepository) Create(ctx context.Context, b *models.Bot) error {
	query := `
		INSERT INTO botdeploy.bots (
			id, user_id, app_name, bot_type, session_token,
			status, stage, error_message, is_free_trial
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		b.ID, b.UserID, b.AppName, b.BotType, b.SessionToken,
		b.Status, b.Stage, b.ErrorMessage, b.IsFreeTrial,
	)
	if err != nil {
		return fmt.Errorf("insert bot: %w", err)
	}
	return nil
}

// GetByAppName retrieves a bot by app name
func (r *BotRepository) GetByAppName(ctx context.Context, appName string) (*models.Bot, error) {
	query := `
		SELECT id, user_id, app_name, bot_type, session_token,
		       status, stage, error_message, is_free_trial,
		       created_at, updated_at, deleted_at
		FROM botdeploy.bots
		WHERE app_name = $1 AND deleted_at IS NULL
	`
	return r.scanBot(r.pool.QueryRow(ctx, query, appName))
}

// ListByUser retrieves all live bot records owned by a user
func (r *BotRepository) ListByUser(ctx context.Context, userID string) ([]*models.Bot, error) {
	query := `
		SELECT id, user_id, app_name, bot_type, session_token,
		       status, stage, error_message, is_free_trial,
		       created_at, updated_at, deleted_at
		FROM botdeploy.bots
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		b := &models.Bot{}
		err := rows.Scan(
			&b.ID, &b.UserID, &b.AppName, &b.BotType, &b.SessionToken,
			&b.Status, &b.Stage, &b.ErrorMessage, &b.IsFreeTrial,
			&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bot row: %w", err)
		}
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

// UpdateStatus updates status, stage and error message for a bot
func (r *BotRepository) UpdateStatus(ctx context.Context, appName, status, stage string, errorMsg *string) error {
	query := `
		UPDATE botdeploy.bots
		SET status = $1, stage = $2, error_message = $3, updated_at = NOW()
		WHERE app_name = $4 AND deleted_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, status, stage, errorMsg, appName)
	if err != nil {
		return fmt.Errorf("update bot status: %w", err)
	}
	return nil
}

// UpdateSessionToken replaces the session token for a bot
func (r *BotRepository) UpdateSessionToken(ctx context.Context, appName, sessionToken string) error {
	query := `
		UPDATE botdeploy.bots
		SET session_token = $1, updated_at = NOW()
		WHERE app_name = $2 AND deleted_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, sessionToken, appName)
	if err != nil {
		return fmt.Errorf("update session token: %w", err)
	}
	return nil
}

// Remove soft-deletes the ownership record. Removing a record that is
// already gone is success, so repeated deletions stay idempotent.
func (r *BotRepository) Remove(ctx context.Context, appName string) error {
	query := `
		UPDATE botdeploy.bots
		SET status = 'deleted', deleted_at = NOW(), updated_at = NOW()
		WHERE app_name = $1 AND deleted_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, appName)
	if err != nil {
		return fmt.Errorf("remove bot: %w", err)
	}
	return nil
}

func (r *BotRepository) scanBot(row pgx.Row) (*models.Bot, error) {
	b := &models.Bot{}
	err := row.Scan(
		&b.ID, &b.UserID, &b.AppName, &b.BotType, &b.SessionToken,
		&b.Status, &b.Stage, &b.ErrorMessage, &b.IsFreeTrial,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan bot: %w", err)
	}
	return b, nil
}
