package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
)

// LifecycleScheduler runs deferred, fire-once side effects (trial
// expiry warning, trial auto-deletion) decoupled from the pipeline
// that created them. Its errors are logged or alerted, never thrown
// into a caller.
type LifecycleScheduler struct {
	platform PlatformAPI
	bots     BotStore
	chat     ChatMessenger
	logs     ActionLogger

	mu     sync.Mutex
	timers map[string]*time.Timer // keyed by appName + "/" + kind
}

// NewLifecycleScheduler creates a scheduler with no pending tasks
func NewLifecycleScheduler(platform PlatformAPI, bots BotStore, chat ChatMessenger, logs ActionLogger) *LifecycleScheduler {
	return &LifecycleScheduler{
		platform: platform,
		bots:     bots,
		chat:     chat,
		logs:     logs,
		timers:   make(map[string]*time.Timer),
	}
}

// ScheduleWarning notifies the user shortly before trial expiry
func (s *LifecycleScheduler) ScheduleWarning(appName, userID string, chatID int64, delay time.Duration) {
	s.schedule(appName, "warning", delay, func() {
		log.Printf("[LifecycleScheduler] Trial warning for %s (user %s)", appName, userID)
		if chatID != 0 {
			if _, err := s.chat.SendMessage(context.Background(), chatID, fmt.Sprintf(
				"Your free trial bot %s will be removed soon. Use a deploy key to keep it running.", appName)); err != nil {
				log.Printf("[LifecycleScheduler] Failed to send trial warning for %s: %v", appName, err)
			}
		}
		_ = s.logs.LogAction(context.Background(), appName, "trial_warning_sent", models.StatusLive,
			"Trial expiry warning delivered")
	})
}

// ScheduleDeletion removes the trial bot after its window elapses
func (s *LifecycleScheduler) ScheduleDeletion(appName, userID string, chatID int64, delay time.Duration) {
	s.schedule(appName, "deletion", delay, func() {
		s.DeleteNow(context.Background(), appName, chatID, "free trial expired")
	})
}

// Cancel stops any pending warning and deletion for appName
func (s *LifecycleScheduler) Cancel(appName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range []string{"warning", "deletion"} {
		key := appName + "/" + kind
		if t, ok := s.timers[key]; ok {
			t.Stop()
			delete(s.timers, key)
		}
	}
}

// DeleteNow performs the deletion sequence immediately: notify user,
// delete the remote app, remove the local ownership record, notify
// completion. Remote failure is alerted to the operator but the local
// record is still removed so bookkeeping never outlives a resource
// that is truly gone. Running it twice for the same app is safe.
func (s *LifecycleScheduler) DeleteNow(ctx context.Context, appName string, chatID int64, reason string) {
	log.Printf("[LifecycleScheduler] Deleting %s (%s)", appName, reason)

	if chatID != 0 {
		if _, err := s.chat.SendMessage(ctx, chatID, fmt.Sprintf("Removing bot %s (%s)...", appName, reason)); err != nil {
			log.Printf("[LifecycleScheduler] Failed to notify user before deletion of %s: %v", appName, err)
		}
	}

	if err := s.platform.DeleteApp(ctx, appName); err != nil {
		log.Printf("[LifecycleScheduler] Remote deletion of %s failed: %v", appName, err)
		s.chat.NotifyOperator(ctx, fmt.Sprintf("Remote deletion of %s failed: %v", appName, err))
	}

	// Local removal proceeds regardless; "already deleted" is success
	if err := s.bots.Remove(ctx, appName); err != nil {
		log.Printf("[LifecycleScheduler] Failed to remove ownership record for %s: %v", appName, err)
		s.chat.NotifyOperator(ctx, fmt.Sprintf("Failed to remove ownership record for %s: %v", appName, err))
	}

	_ = s.logs.LogAction(ctx, appName, "deleted", models.StatusDeleted, "Bot removed: "+reason)

	if chatID != 0 {
		if _, err := s.chat.SendMessage(ctx, chatID, fmt.Sprintf("Bot %s has been removed.", appName)); err != nil {
			log.Printf("[LifecycleScheduler] Failed to notify user after deletion of %s: %v", appName, err)
		}
	}
}

// schedule installs a fire-once timer, replacing any pending task of
// the same kind for the same app
func (s *LifecycleScheduler) schedule(appName, kind string, delay time.Duration, task func()) {
	key := appName + "/" + kind

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.timers[key]; ok {
		prior.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		task()
	})

	log.Printf("[LifecycleScheduler] Scheduled %s for %s in %v", kind, appName, delay)
}

// PendingCount reports the number of scheduled tasks
func (s *LifecycleScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
