package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// PlatformClient calls the remote PaaS REST API that builds and runs
// deployed bot instances. It performs no retries; retry policy belongs
// to callers.
type PlatformClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewPlatformClient creates a new platform client
func NewPlatformClient(baseURL, apiKey string) *PlatformClient {
	return &PlatformClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// PlatformError is any non-2xx response from the platform API
type PlatformError struct {
	StatusCode int
	Message    string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform returned status %d: %s", e.StatusCode, e.Message)
}

// IsNameTaken reports whether the error is a 409-class name collision.
// The platform offers no locking; this response is the sole source of
// truth for app-name collisions.
func IsNameTaken(err error) bool {
	pe, ok := err.(*PlatformError)
	return ok && pe.StatusCode == http.StatusConflict
}

// AppInfo contains remote app details
type AppInfo struct {
	Name       string            `json:"name"`
	DynoState  string            `json:"dyno_state"`
	CreatedAt  string            `json:"created_at"`
	ReleasedAt string            `json:"released_at,omitempty"`
	ConfigVars map[string]string `json:"config_vars,omitempty"`
}

// Build status values reported by the platform
const (
	BuildStatusPending   = "pending"
	BuildStatusSucceeded = "succeeded"
	BuildStatusFailed    = "failed"
)

// BuildInfo tracks one remote build
type BuildInfo struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// CreateApp creates a remote app with the given name
func (c *PlatformClient) CreateApp(ctx context.Context, name string) error {
	log.Printf("[PlatformClient] Creating app: %s", name)

	body := map[string]string{"name": name}
	return c.do(ctx, http.MethodPost, "/apps", body, nil)
}

// SetConfigVars writes config vars onto an app
func (c *PlatformClient) SetConfigVars(ctx context.Context, name string, vars map[string]string) error {
	return c.do(ctx, http.MethodPatch, "/apps/"+name+"/config-vars", vars, nil)
}

// InstallBuildpacks installs the given buildpack list onto an app
func (c *PlatformClient) InstallBuildpacks(ctx context.Context, name string, buildpacks []string) error {
	updates := make([]map[string]string, 0, len(buildpacks))
	for _, bp := range buildpacks {
		updates = append(updates, map[string]string{"buildpack": bp})
	}
	body := map[string]any{"updates": updates}
	return c.do(ctx, http.MethodPut, "/apps/"+name+"/buildpack-installations", body, nil)
}

// TriggerBuild starts a remote build from a source tarball URL
func (c *PlatformClient) TriggerBuild(ctx context.Context, name, sourceURL string) (string, error) {
	log.Printf("[PlatformClient] Triggering build for app %s", name)

	body := map[string]any{
		"source_blob": map[string]string{"url": sourceURL},
	}
	var build BuildInfo
	if err := c.do(ctx, http.MethodPost, "/apps/"+name+"/builds", body, &build); err != nil {
		return "", err
	}

	log.Printf("[PlatformClient] Build started: app=%s build=%s", name, build.ID)
	return build.ID, nil
}

// GetBuildStatus fetches the status of a remote build
func (c *PlatformClient) GetBuildStatus(ctx context.Context, name, buildID string) (*BuildInfo, error) {
	var build BuildInfo
	if err := c.do(ctx, http.MethodGet, "/apps/"+name+"/builds/"+buildID, nil, &build); err != nil {
		return nil, err
	}
	return &build, nil
}

// RestartDynos restarts all dynos of an app
func (c *PlatformClient) RestartDynos(ctx context.Context, name string) error {
	log.Printf("[PlatformClient] Restarting dynos: %s", name)
	return c.do(ctx, http.MethodDelete, "/apps/"+name+"/dynos", nil, nil)
}

// DeleteApp deletes a remote app. A 404 means the app is already gone
// and is treated as success.
func (c *PlatformClient) DeleteApp(ctx context.Context, name string) error {
	log.Printf("[PlatformClient] Deleting app: %s", name)

	err := c.do(ctx, http.MethodDelete, "/apps/"+name, nil, nil)
	if pe, ok := err.(*PlatformError); ok && pe.StatusCode == http.StatusNotFound {
		log.Printf("[PlatformClient] App %s already gone", name)
		return nil
	}
	return err
}

// GetAppInfo fetches remote app details. A 404 is not an error: it
// returns (nil, nil) and means the name is available.
func (c *PlatformClient) GetAppInfo(ctx context.Context, name string) (*AppInfo, error) {
	var info AppInfo
	err := c.do(ctx, http.MethodGet, "/apps/"+name, nil, &info)
	if pe, ok := err.(*PlatformError); ok && pe.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// do sends one request and decodes the response into out (if non-nil).
// Non-2xx responses become *PlatformError.
func (c *PlatformClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &PlatformError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
		}
	}

	return nil
}
