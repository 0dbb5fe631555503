package models

import (
	"time"
)

// DeployKey is a limited-use authorization token for gated deployments.
// A key with uses_left == 0 is presented to callers as not found; the
// repository keeps the distinction so logs can tell the two apart.
type DeployKey struct {
	Key       string    `json:"key"`
	UsesLeft  int       `json:"uses_left"`
	GrantedBy string    `json:"granted_by"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FreeTrialWindow records a user's last free-trial deployment.
// A new trial is allowed only once the cooldown has fully elapsed.
type FreeTrialWindow struct {
	UserID string    `json:"user_id"`
	UsedAt time.Time `json:"used_at"`
}

// CanStartTrial reports trial eligibility at the given instant.
// The boundary is inclusive: exactly cooldown after UsedAt is eligible.
func (w *FreeTrialWindow) CanStartTrial(now time.Time, cooldown time.Duration) bool {
	return !now.Before(w.UsedAt.Add(cooldown))
}
