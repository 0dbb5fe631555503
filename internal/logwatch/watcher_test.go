package logwatch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *recordingAlerter) NotifyOperator(ctx context.Context, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, text)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

// testWatcher returns a watcher with a controllable clock and a
// counting exit hook instead of the real process exit
func testWatcher(restartEnabled bool) (*Watcher, *recordingAlerter, *time.Time, *int) {
	alerter := &recordingAlerter{}
	w := NewWatcher(alerter, 5*time.Minute, restartEnabled, 30*time.Second)

	clock := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	exits := 0
	w.scheduleExit = func(delay time.Duration) { exits++ }

	return w, alerter, &clock, &exits
}

func TestAlertCooldownSuppressesRepeats(t *testing.T) {
	w, alerter, clock, _ := testWatcher(false)
	ctx := context.Background()

	w.HandleLine(ctx, "invalid session for u1. closing")
	*clock = clock.Add(time.Second)
	w.HandleLine(ctx, "invalid session for u1. closing")

	if alerter.count() != 1 {
		t.Fatalf("expected 1 alert within the cooldown, got %d", alerter.count())
	}

	*clock = clock.Add(6 * time.Minute)
	w.HandleLine(ctx, "invalid session for u1. closing")

	if alerter.count() != 2 {
		t.Fatalf("expected a second alert after the cooldown, got %d", alerter.count())
	}
}

func TestAlertCooldownBoundaryIsInclusive(t *testing.T) {
	w, alerter, clock, _ := testWatcher(false)
	ctx := context.Background()

	w.HandleLine(ctx, "invalid session")
	*clock = clock.Add(5 * time.Minute)
	w.HandleLine(ctx, "invalid session")

	if alerter.count() != 2 {
		t.Fatalf("elapsed == cooldown should alert, got %d", alerter.count())
	}
}

func TestAlertCarriesIdentifier(t *testing.T) {
	w, alerter, _, _ := testWatcher(false)

	w.HandleLine(context.Background(), "invalid session for 919876543210. closing")

	alerter.mu.Lock()
	defer alerter.mu.Unlock()
	if len(alerter.alerts) != 1 || !strings.Contains(alerter.alerts[0], "919876543210") {
		t.Fatalf("expected the identifier in the alert, got %v", alerter.alerts)
	}
}

func TestExitScheduledOncePerProcess(t *testing.T) {
	w, _, clock, exits := testWatcher(true)
	ctx := context.Background()

	w.HandleLine(ctx, "invalid session")
	*clock = clock.Add(10 * time.Minute)
	w.HandleLine(ctx, "invalid session")

	if *exits != 1 {
		t.Fatalf("exit must be scheduled exactly once, got %d", *exits)
	}
}

func TestSuppressedAlertStillSchedulesExit(t *testing.T) {
	w, alerter, clock, exits := testWatcher(true)

	// Open the cooldown window before the first match so the alert is
	// suppressed; the exit path must not depend on it.
	w.lastAlertTime = *clock

	w.HandleLine(context.Background(), "invalid session for u1. closing")

	if alerter.count() != 0 {
		t.Fatalf("expected the alert suppressed, got %d", alerter.count())
	}
	if *exits != 1 {
		t.Fatalf("exit scheduling is independent of the alert cooldown, got %d", *exits)
	}
}

func TestNoExitWhenRestartDisabled(t *testing.T) {
	w, _, _, exits := testWatcher(false)

	w.HandleLine(context.Background(), "invalid session")

	if *exits != 0 {
		t.Fatalf("restart disabled must never schedule an exit, got %d", *exits)
	}
}

func TestRunConsumesStreamUntilEOF(t *testing.T) {
	w, alerter, _, _ := testWatcher(false)

	stream := strings.NewReader(strings.Join([]string{
		"boot ok",
		"connecting",
		"invalid session for u1. closing",
		"shutting down",
	}, "\n"))

	if err := w.Run(context.Background(), stream); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerter.count() != 1 {
		t.Fatalf("expected 1 alert from the stream, got %d", alerter.count())
	}
}
