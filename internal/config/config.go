package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// 不安全的默认值列表 (生产环境不应使用)
var insecureDefaults = map[string]bool{
	"your-secret-key-change-in-production": true,
	"internal-secret":                      true,
	"internal-service-secret":              true,
	"":                                     true,
}

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	JWT            JWTConfig
	Platform       PlatformConfig
	Chat           ChatConfig
	Deploy         DeployConfig
	Restart        RestartConfig
	InternalSecret string
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Schema   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

// PlatformConfig points at the remote PaaS that builds and runs bots
type PlatformConfig struct {
	APIURL string
	APIKey string
}

// ChatConfig points at the chat gateway used for progress messages
// and operator alerts
type ChatConfig struct {
	GatewayURL     string
	BotToken       string
	OperatorChatID int64
}

// DeployConfig holds the orchestration timings
type DeployConfig struct {
	BuildPollInterval time.Duration
	BuildTimeout      time.Duration
	ConnectTimeout    time.Duration
	AnimationTick     time.Duration
	TrialCooldown     time.Duration
	TrialWarningAfter time.Duration
	TrialDeleteAfter  time.Duration
}

// RestartConfig controls the log-pattern restart trigger
type RestartConfig struct {
	Enabled       bool
	ExitDelay     time.Duration
	AlertCooldown time.Duration
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8007"),
			Mode: getEnv("GIN_MODE", "release"), // 默认为 release 模式
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "saas_user"),
			Password: getEnv("DB_PASSWORD", "saas_pass"),
			DBName:   getEnv("DB_NAME", "saas_db"),
			Schema:   getEnv("DB_SCHEMA", "botdeploy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
		},
		Platform: PlatformConfig{
			APIURL: getEnv("PLATFORM_API_URL", "https://api.heroku.com"),
			APIKey: getEnv("PLATFORM_API_KEY", ""),
		},
		Chat: ChatConfig{
			GatewayURL:     getEnv("CHAT_GATEWAY_URL", "http://localhost:8090"),
			BotToken:       getEnv("CHAT_BOT_TOKEN", ""),
			OperatorChatID: getEnvInt64("CHAT_OPERATOR_CHAT_ID", 0),
		},
		Deploy: DeployConfig{
			BuildPollInterval: getEnvDuration("DEPLOY_BUILD_POLL_INTERVAL", 10*time.Second),
			BuildTimeout:      getEnvDuration("DEPLOY_BUILD_TIMEOUT", 300*time.Second),
			ConnectTimeout:    getEnvDuration("DEPLOY_CONNECT_TIMEOUT", 120*time.Second),
			AnimationTick:     getEnvDuration("DEPLOY_ANIMATION_TICK", 3*time.Second),
			TrialCooldown:     getEnvDuration("TRIAL_COOLDOWN", 14*24*time.Hour),
			TrialWarningAfter: getEnvDuration("TRIAL_WARNING_AFTER", 55*time.Minute),
			TrialDeleteAfter:  getEnvDuration("TRIAL_DELETE_AFTER", 60*time.Minute),
		},
		Restart: RestartConfig{
			Enabled:       getEnvBool("RESTART_TRIGGER_ENABLED", false),
			ExitDelay:     getEnvDuration("RESTART_EXIT_DELAY", 30*time.Second),
			AlertCooldown: getEnvDuration("RESTART_ALERT_COOLDOWN", 5*time.Minute),
		},
		InternalSecret: getEnv("INTERNAL_SECRET", ""),
	}

	// 日志脱敏: 不记录敏感配置
	log.Printf("[config] Bot Deploy Service loaded: port=%s db=%s/%s.%s platform=%s",
		cfg.Server.Port, cfg.Database.Host, cfg.Database.DBName, cfg.Database.Schema, cfg.Platform.APIURL)

	return cfg
}

// Validate 验证配置有效性，生产环境必须设置安全的密钥
func (c *Config) Validate() error {
	// 检查 JWT 密钥
	if insecureDefaults[c.JWT.SecretKey] {
		return fmt.Errorf("JWT_SECRET_KEY must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long")
	}

	// 检查内部服务密钥
	if insecureDefaults[c.InternalSecret] {
		return fmt.Errorf("INTERNAL_SECRET must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.InternalSecret) < 32 {
		return fmt.Errorf("INTERNAL_SECRET must be at least 32 characters long")
	}

	if c.Platform.APIKey == "" {
		return fmt.Errorf("PLATFORM_API_KEY must be set")
	}

	if c.Deploy.BuildPollInterval <= 0 || c.Deploy.BuildTimeout <= c.Deploy.BuildPollInterval {
		return fmt.Errorf("DEPLOY_BUILD_TIMEOUT must be larger than DEPLOY_BUILD_POLL_INTERVAL")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
