package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wenwu/saas-platform/botdeploy-service/internal/client"
)

func TestWaitForBuildSucceedsAfterExactPolls(t *testing.T) {
	platform := &fakePlatform{
		buildStatuses: []*client.BuildInfo{
			{ID: "b1", Status: client.BuildStatusPending},
			{ID: "b1", Status: client.BuildStatusPending},
			{ID: "b1", Status: client.BuildStatusSucceeded},
		},
	}
	poller := NewBuildPoller(platform, 5*time.Millisecond, time.Second)

	if err := poller.WaitForBuild(context.Background(), "demo-bot-1", "b1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := platform.pollCalls(); got != 3 {
		t.Fatalf("expected exactly 3 polls, got %d", got)
	}

	// Polling must fully stop once resolved
	time.Sleep(30 * time.Millisecond)
	if got := platform.pollCalls(); got != 3 {
		t.Fatalf("polling continued after resolution: %d calls", got)
	}
}

func TestWaitForBuildSurfacesFailureReason(t *testing.T) {
	platform := &fakePlatform{
		buildStatuses: []*client.BuildInfo{
			{ID: "b1", Status: client.BuildStatusFailed, Message: "buildpack detection failed"},
		},
	}
	poller := NewBuildPoller(platform, 5*time.Millisecond, time.Second)

	err := poller.WaitForBuild(context.Background(), "demo-bot-1", "b1")
	if err == nil || !strings.Contains(err.Error(), "buildpack detection failed") {
		t.Fatalf("expected the platform-reported reason, got %v", err)
	}
}

func TestWaitForBuildFailureWithoutReason(t *testing.T) {
	platform := &fakePlatform{
		buildStatuses: []*client.BuildInfo{
			{ID: "b1", Status: client.BuildStatusFailed},
		},
	}
	poller := NewBuildPoller(platform, 5*time.Millisecond, time.Second)

	err := poller.WaitForBuild(context.Background(), "demo-bot-1", "b1")
	if err == nil || !strings.Contains(err.Error(), "no reason reported") {
		t.Fatalf("expected placeholder reason, got %v", err)
	}
}

func TestWaitForBuildTimesOutAndStopsPolling(t *testing.T) {
	platform := &fakePlatform{} // always pending
	poller := NewBuildPoller(platform, 10*time.Millisecond, 45*time.Millisecond)

	err := poller.WaitForBuild(context.Background(), "demo-bot-1", "b1")
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.Op != "build" {
		t.Fatalf("expected build timeout, got %q", te.Op)
	}

	calls := platform.pollCalls()
	time.Sleep(50 * time.Millisecond)
	if got := platform.pollCalls(); got != calls {
		t.Fatalf("polling continued after timeout: %d -> %d calls", calls, got)
	}
}

func TestWaitForBuildToleratesTransientPollErrors(t *testing.T) {
	platform := &erroringThenSucceedingPlatform{failures: 2}
	poller := NewBuildPoller(platform, 5*time.Millisecond, time.Second)

	if err := poller.WaitForBuild(context.Background(), "demo-bot-1", "b1"); err != nil {
		t.Fatalf("transient errors should not end the wait, got %v", err)
	}
	if platform.calls != 3 {
		t.Fatalf("expected 2 failed polls + 1 success, got %d calls", platform.calls)
	}
}

func TestWaitForBuildHonorsContextCancellation(t *testing.T) {
	platform := &fakePlatform{}
	poller := NewBuildPoller(platform, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := poller.WaitForBuild(ctx, "demo-bot-1", "b1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

// erroringThenSucceedingPlatform fails the first N status polls, then
// reports success. Only GetBuildStatus matters here.
type erroringThenSucceedingPlatform struct {
	fakePlatform
	failures int
	calls    int
}

func (p *erroringThenSucceedingPlatform) GetBuildStatus(ctx context.Context, name, buildID string) (*client.BuildInfo, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, errors.New("temporary upstream error")
	}
	return &client.BuildInfo{ID: buildID, Status: client.BuildStatusSucceeded}, nil
}
