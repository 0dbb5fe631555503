package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wenwu/saas-platform/botdeploy-service/internal/client"
)

// BuildPoller waits for a remote build to reach a terminal status by
// querying the platform on a fixed cadence. It owns no shared state:
// it only resolves or rejects its caller, exactly once.
type BuildPoller struct {
	platform PlatformAPI
	interval time.Duration
	timeout  time.Duration
}

// NewBuildPoller creates a poller with the given cadence and bound
func NewBuildPoller(platform PlatformAPI, interval, timeout time.Duration) *BuildPoller {
	return &BuildPoller{
		platform: platform,
		interval: interval,
		timeout:  timeout,
	}
}

// WaitForBuild polls until the build succeeds, fails, or the timeout
// elapses. The ticker and deadline timer are always stopped on return.
// Transient poll errors are logged and polling continues; only the
// build's own terminal status or the timeout ends the wait.
func (p *BuildPoller) WaitForBuild(ctx context.Context, appName, buildID string) error {
	started := time.Now()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()

	log.Printf("[BuildPoller] Waiting for build %s of app %s (interval %v, timeout %v)",
		buildID, appName, p.interval, p.timeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-deadline.C:
			return &TimeoutError{Op: "build", Elapsed: time.Since(started)}

		case <-ticker.C:
			build, err := p.platform.GetBuildStatus(ctx, appName, buildID)
			if err != nil {
				log.Printf("[BuildPoller] Error polling build %s: %v", buildID, err)
				continue
			}

			switch build.Status {
			case client.BuildStatusSucceeded:
				log.Printf("[BuildPoller] Build %s succeeded after %v", buildID, time.Since(started).Round(time.Second))
				return nil
			case client.BuildStatusFailed:
				reason := build.Message
				if reason == "" {
					reason = "no reason reported"
				}
				return fmt.Errorf("build failed: %s", reason)
			}
		}
	}
}
