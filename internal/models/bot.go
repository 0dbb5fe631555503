package models

import (
	"time"
)

// Bot status constants
const (
	StatusPending    = "pending"
	StatusCreating   = "creating"
	StatusBuilding   = "building"
	StatusConnecting = "connecting"
	StatusLive       = "live"
	StatusFailed     = "failed"
	StatusDeleted    = "deleted"
)

// Pipeline stage constants (used for stage-tagged failures).
// Validation failures are returned synchronously before any record
// exists, so no stored failure ever carries a validate stage.
const (
	StageCreate  = "create"
	StageBuild   = "build"
	StageConnect = "connect"
)

// Supported bot types
const (
	BotTypeLevanter   = "levanter"
	BotTypeRaganork   = "raganork"
	BotTypeWhatsasena = "whatsasena"
)

// Bot is the durable ownership record for a deployed bot instance
type Bot struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	AppName      string     `json:"app_name"`
	BotType      string     `json:"bot_type"`
	SessionToken string     `json:"-"`
	Status       string     `json:"status"`
	Stage        string     `json:"stage,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	IsFreeTrial  bool       `json:"is_free_trial"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// IsBotTypeSupported reports whether the given bot type is deployable
func IsBotTypeSupported(botType string) bool {
	switch botType {
	case BotTypeLevanter, BotTypeRaganork, BotTypeWhatsasena:
		return true
	}
	return false
}
