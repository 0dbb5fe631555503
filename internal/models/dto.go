package models

// ==================== User API DTOs ====================

// DeployRequest is the immutable input for one deployment request
type DeployRequest struct {
	UserID         string `json:"user_id"`
	ChatID         int64  `json:"chat_id"`
	AppName        string `json:"app_name" binding:"required"`
	SessionToken   string `json:"session_token" binding:"required"`
	BotType        string `json:"bot_type" binding:"required"`
	IsFreeTrial    bool   `json:"is_free_trial"`
	AutoStatusView bool   `json:"auto_status_view"`
	DeployKey      string `json:"deploy_key,omitempty"`
}

// DeployResponse acknowledges a deployment request
type DeployResponse struct {
	Success bool   `json:"success"`
	AppName string `json:"app_name,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// DeleteBotResponse is returned when a user deletes a bot
type DeleteBotResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RestartBotResponse is returned when a user restarts a bot
type RestartBotResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UpdateSessionRequest replaces the session token of a deployed bot
type UpdateSessionRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// UpdateSessionResponse is returned when a user replaces a session
type UpdateSessionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TrialStatusResponse reports free-trial eligibility for a user
type TrialStatusResponse struct {
	TrialAvailable bool   `json:"trial_available"`
	TrialUsed      bool   `json:"trial_used"`
	UsedAt         string `json:"used_at,omitempty"`
	EligibleAt     string `json:"eligible_at,omitempty"`
}

// ==================== Callback API DTOs ====================

// Connection outcome values reported by the health collaborator
const (
	ConnectionOutcomeHealthy        = "healthy"
	ConnectionOutcomeInvalidSession = "invalid-session"
)

// ConnectionCallback is posted by the health-reporting collaborator
// once a freshly deployed instance proves itself alive (or broken)
type ConnectionCallback struct {
	AppName string `json:"app_name" binding:"required"`
	Outcome string `json:"outcome" binding:"required"`
	Detail  string `json:"detail"`
}

// ==================== Internal Admin API DTOs ====================

// CreateDeployKeyRequest mints a new limited-use deploy key
type CreateDeployKeyRequest struct {
	UsesLeft  int    `json:"uses_left" binding:"required"`
	GrantedBy string `json:"granted_by"`
	Note      string `json:"note"`
}

// CreateDeployKeyResponse returns the minted key
type CreateDeployKeyResponse struct {
	Key      string `json:"key"`
	UsesLeft int    `json:"uses_left"`
}
