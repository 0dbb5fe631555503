package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
)

type DeployKeyRepository struct {
	pool *pgxpool.Pool
}

func NewDeployKeyRepository(pool *pgxpool.Pool) *DeployKeyRepository {
	return &DeployKeyRepository{pool: pool}
}

// Create inserts a new deploy key
func (r *DeployKeyRepository) Create(ctx context.Context, k *models.DeployKey) error {
	query := `
		INSERT INTO botdeploy.deploy_keys (key, uses_left, granted_by, note)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, k.Key, k.UsesLeft, k.GrantedBy, k.Note)
	if err != nil {
		return fmt.Errorf("insert deploy key: %w", err)
	}
	return nil
}

// Consume atomically decrements uses_left and returns the remaining
// count. A missing key returns ErrNotFound; an exhausted key returns
// ErrKeyExhausted. Both present the same to users.
func (r *DeployKeyRepository) Consume(ctx context.Context, key string) (int, error) {
	query := `
		UPDATE botdeploy.deploy_keys
		SET uses_left = uses_left - 1, updated_at = NOW()
		WHERE key = $1 AND uses_left > 0
		RETURNING uses_left
	`
	var usesLeft int
	err := r.pool.QueryRow(ctx, query, key).Scan(&usesLeft)
	if err == nil {
		return usesLeft, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("consume deploy key: %w", err)
	}

	// No row updated: distinguish absent from exhausted for the logs
	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM botdeploy.deploy_keys WHERE key = $1)`
	if err := r.pool.QueryRow(ctx, checkQuery, key).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check deploy key: %w", err)
	}
	if exists {
		return 0, ErrKeyExhausted
	}
	return 0, ErrNotFound
}

// Get retrieves a deploy key regardless of uses_left (admin use)
func (r *DeployKeyRepository) Get(ctx context.Context, key string) (*models.DeployKey, error) {
	query := `
		SELECT key, uses_left, granted_by, note, created_at, updated_at
		FROM botdeploy.deploy_keys
		WHERE key = $1
	`
	k := &models.DeployKey{}
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&k.Key, &k.UsesLeft, &k.GrantedBy, &k.Note, &k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get deploy key: %w", err)
	}
	return k, nil
}

// List returns recently created deploy keys (admin use)
func (r *DeployKeyRepository) List(ctx context.Context, limit int) ([]*models.DeployKey, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT key, uses_left, granted_by, note, created_at, updated_at
		FROM botdeploy.deploy_keys
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list deploy keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.DeployKey
	for rows.Next() {
		k := &models.DeployKey{}
		err := rows.Scan(&k.Key, &k.UsesLeft, &k.GrantedBy, &k.Note, &k.CreatedAt, &k.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan deploy key row: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
