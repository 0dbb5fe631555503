package models

import (
	"time"
)

// ActionLog records one stage transition or notable event for a
// deployment, kept for diagnosis
type ActionLog struct {
	ID        string                 `json:"id"`
	AppName   string                 `json:"app_name"`
	Action    string                 `json:"action"`
	Status    string                 `json:"status"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
