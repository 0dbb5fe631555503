package logwatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Alerter delivers operator alerts
type Alerter interface {
	NotifyOperator(ctx context.Context, text string)
}

// Watcher consumes the process's own line-buffered output, recognizes
// session-invalidation patterns, rate-limits operator alerts and, if
// restart capability is enabled, schedules a process exit so the
// supervising platform restarts it. At-least-once, best-effort.
type Watcher struct {
	alerter        Alerter
	alertCooldown  time.Duration
	restartEnabled bool
	exitDelay      time.Duration

	// injected for tests
	now          func() time.Time
	scheduleExit func(delay time.Duration)

	mu            sync.Mutex
	lastAlertTime time.Time
	exitScheduled bool
}

// NewWatcher creates a watcher. The default exit action terminates
// the process after the delay.
func NewWatcher(alerter Alerter, alertCooldown time.Duration, restartEnabled bool, exitDelay time.Duration) *Watcher {
	w := &Watcher{
		alerter:        alerter,
		alertCooldown:  alertCooldown,
		restartEnabled: restartEnabled,
		exitDelay:      exitDelay,
		now:            time.Now,
	}
	w.scheduleExit = func(delay time.Duration) {
		time.AfterFunc(delay, func() {
			log.Printf("[logwatch] Exiting for supervised restart")
			os.Exit(1)
		})
	}
	return w
}

// Run consumes lines from r until EOF or context cancellation
func (w *Watcher) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.HandleLine(ctx, scanner.Text())
	}
	return scanner.Err()
}

// HandleLine classifies one output line and reacts to a session
// invalidation: at most one operator alert per cooldown window, and
// one scheduled exit per process if restart is enabled
func (w *Watcher) HandleLine(ctx context.Context, line string) {
	event, ok := Classify(line)
	if !ok {
		return
	}

	w.mu.Lock()
	now := w.now()
	shouldAlert := w.lastAlertTime.IsZero() || now.Sub(w.lastAlertTime) >= w.alertCooldown
	if shouldAlert {
		w.lastAlertTime = now
	}
	shouldExit := w.restartEnabled && !w.exitScheduled
	if shouldExit {
		w.exitScheduled = true
	}
	w.mu.Unlock()

	log.Printf("[logwatch] Session invalidation detected (id=%q): %s", event.Identifier, event.Line)

	if shouldAlert {
		id := event.Identifier
		if id == "" {
			id = "unknown"
		}
		w.alerter.NotifyOperator(ctx, fmt.Sprintf("Session invalidated (id=%s): %s", id, event.Line))
	}

	if shouldExit {
		log.Printf("[logwatch] Scheduling process exit in %v", w.exitDelay)
		w.scheduleExit(w.exitDelay)
	}
}
