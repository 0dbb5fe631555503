package service

import (
	"fmt"
	"time"
)

// ValidationError is a user-fixable input problem (bad app name,
// expired trial, bad or exhausted deploy key). Reported verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// TimeoutError is a bounded wait (build poll or connection await)
// that exceeded its limit
type TimeoutError struct {
	Op      string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Elapsed.Round(time.Second))
}

// SupersededError rejects a pending connection wait when a newer
// deployment for the same app name registers. Never surfaced to the
// superseded requester as feedback; only the superseding request
// reports progress.
type SupersededError struct {
	AppName string
}

func (e *SupersededError) Error() string {
	return fmt.Sprintf("connection wait for %s superseded by a newer deployment", e.AppName)
}

// InvalidSessionError rejects a connection wait when the deployed
// instance reports an invalid session
type InvalidSessionError struct {
	Detail string
}

func (e *InvalidSessionError) Error() string {
	if e.Detail == "" {
		return "deployed instance reported an invalid session"
	}
	return "deployed instance reported an invalid session: " + e.Detail
}

// StageError tags a pipeline failure with the stage it occurred in
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
