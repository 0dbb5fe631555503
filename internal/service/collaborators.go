package service

import (
	"context"

	"github.com/wenwu/saas-platform/botdeploy-service/internal/client"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
)

// Collaborator interfaces consumed by the deployment engine. The
// concrete implementations live in internal/client and
// internal/repository; tests substitute fakes.

// PlatformAPI is the remote PaaS surface the engine drives
type PlatformAPI interface {
	CreateApp(ctx context.Context, name string) error
	SetConfigVars(ctx context.Context, name string, vars map[string]string) error
	InstallBuildpacks(ctx context.Context, name string, buildpacks []string) error
	TriggerBuild(ctx context.Context, name, sourceURL string) (string, error)
	GetBuildStatus(ctx context.Context, name, buildID string) (*client.BuildInfo, error)
	RestartDynos(ctx context.Context, name string) error
	DeleteApp(ctx context.Context, name string) error
	GetAppInfo(ctx context.Context, name string) (*client.AppInfo, error)
}

// ChatMessenger delivers progress messages and operator alerts
type ChatMessenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	NotifyOperator(ctx context.Context, text string)
}

// BotStore persists owned-bot records
type BotStore interface {
	Create(ctx context.Context, b *models.Bot) error
	GetByAppName(ctx context.Context, appName string) (*models.Bot, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Bot, error)
	UpdateStatus(ctx context.Context, appName, status, stage string, errorMsg *string) error
	UpdateSessionToken(ctx context.Context, appName, sessionToken string) error
	Remove(ctx context.Context, appName string) error
}

// TrialStore persists per-user free-trial windows
type TrialStore interface {
	Get(ctx context.Context, userID string) (*models.FreeTrialWindow, error)
	RecordUse(ctx context.Context, userID string) error
}

// DeployKeyStore consumes limited-use deploy keys
type DeployKeyStore interface {
	Consume(ctx context.Context, key string) (int, error)
}

// ActionLogger records stage transitions for diagnosis
type ActionLogger interface {
	LogAction(ctx context.Context, appName, action, status, message string) error
}
