package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
)

type ActionLogRepository struct {
	pool *pgxpool.Pool
}

func NewActionLogRepository(pool *pgxpool.Pool) *ActionLogRepository {
	return &ActionLogRepository{pool: pool}
}

// Create creates a new action log entry
func (r *ActionLogRepository) Create(ctx context.Context, logEntry *models.ActionLog) error {
	if logEntry.ID == "" {
		logEntry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO botdeploy.action_logs (id, app_name, action, status, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		logEntry.ID, logEntry.AppName, logEntry.Action, logEntry.Status, logEntry.Message, logEntry.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert action log: %w", err)
	}

	return nil
}

// GetByAppName retrieves log entries for an app
func (r *ActionLogRepository) GetByAppName(ctx context.Context, appName string, limit int) ([]*models.ActionLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, app_name, action, status, message, metadata, created_at
		FROM botdeploy.action_logs
		WHERE app_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, appName, limit)
	if err != nil {
		return nil, fmt.Errorf("query action logs: %w", err)
	}
	defer rows.Close()

	var logEntries []*models.ActionLog
	for rows.Next() {
		logEntry := &models.ActionLog{}
		err := rows.Scan(
			&logEntry.ID, &logEntry.AppName, &logEntry.Action, &logEntry.Status,
			&logEntry.Message, &logEntry.Metadata, &logEntry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan action log: %w", err)
		}
		logEntries = append(logEntries, logEntry)
	}

	return logEntries, rows.Err()
}

// LogAction is a helper to log an action
func (r *ActionLogRepository) LogAction(ctx context.Context, appName, action, status, message string) error {
	logEntry := &models.ActionLog{
		AppName: appName,
		Action:  action,
		Status:  status,
		Message: message,
	}
	return r.Create(ctx, logEntry)
}
