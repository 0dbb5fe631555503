package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
)

// ConnectionRegistry tracks in-flight "waiting for the deployed
// instance to prove itself alive" operations, keyed by app name. At
// most one pending wait exists per app name; a newer registration
// force-rejects the prior one. Each entry terminates exactly once:
// signalled healthy, signalled invalid-session, or expired.
type ConnectionRegistry struct {
	mu      sync.Mutex
	pending map[string]*pendingConnection
	expiry  time.Duration
}

type pendingConnection struct {
	appName      string
	registeredAt time.Time
	result       chan error
	timer        *time.Timer
	settled      bool
}

// ConnectionWait is the caller's handle for one registered wait
type ConnectionWait struct {
	result <-chan error
}

// Wait blocks until the entry terminates. A nil error means the
// instance reported healthy.
func (w *ConnectionWait) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-w.result:
		return err
	}
}

// NewConnectionRegistry creates a registry whose entries expire after
// the given duration if never signalled
func NewConnectionRegistry(expiry time.Duration) *ConnectionRegistry {
	return &ConnectionRegistry{
		pending: make(map[string]*pendingConnection),
		expiry:  expiry,
	}
}

// Register installs a pending wait for appName. Any prior pending
// entry for the same name is rejected with SupersededError first, so
// two pipelines can never race on one name.
func (r *ConnectionRegistry) Register(appName string) *ConnectionWait {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.pending[appName]; ok {
		log.Printf("[ConnectionRegistry] Superseding pending wait for %s", appName)
		r.settleLocked(prior, &SupersededError{AppName: appName})
	}

	entry := &pendingConnection{
		appName:      appName,
		registeredAt: time.Now(),
		result:       make(chan error, 1),
	}
	entry.timer = time.AfterFunc(r.expiry, func() {
		r.expire(appName, entry)
	})
	r.pending[appName] = entry

	return &ConnectionWait{result: entry.result}
}

// Signal resolves or rejects the pending wait for appName. A signal
// with no waiter is not an error: the reporting collaborator cannot
// know whether anyone is listening. Returns whether a waiter existed.
func (r *ConnectionRegistry) Signal(appName, outcome, detail string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.pending[appName]
	if !ok {
		log.Printf("[ConnectionRegistry] Signal for %s (%s) with no waiter, ignoring", appName, outcome)
		return false
	}

	switch outcome {
	case models.ConnectionOutcomeHealthy:
		r.settleLocked(entry, nil)
	default:
		r.settleLocked(entry, &InvalidSessionError{Detail: detail})
	}
	delete(r.pending, appName)
	return true
}

// expire rejects the entry with a timeout if it is still the pending
// one and has not settled. Signal stops the timer under the same
// mutex, so an expiry can never follow a signal for the same entry.
func (r *ConnectionRegistry) expire(appName string, entry *pendingConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.pending[appName]; !ok || current != entry {
		return
	}
	log.Printf("[ConnectionRegistry] Wait for %s expired after %v", appName, r.expiry)
	r.settleLocked(entry, &TimeoutError{Op: "connect", Elapsed: time.Since(entry.registeredAt)})
	delete(r.pending, appName)
}

// settleLocked delivers the terminal outcome exactly once. Callers
// hold r.mu.
func (r *ConnectionRegistry) settleLocked(entry *pendingConnection, err error) {
	if entry.settled {
		return
	}
	entry.settled = true
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.result <- err
}

// PendingCount reports the number of in-flight waits
func (r *ConnectionRegistry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
