// Package workflow implements the "workflow" reference tool: a thin
// bearer-token HTTP client that triggers and polls runs on an external
// workflow orchestration service, adapted from the Ruriko webhook proxy's
// forwarding conventions and retried with common/retry.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bdobrica/Ruriko/common/retry"
)

// errRetryable marks a failure the orchestrator is expected to recover
// from (5xx, connection errors) as distinct from a permanent rejection
// (4xx), so retry.Do backs off only on the former.
var errRetryable = errors.New("workflow: retryable orchestrator error")

var retryConfig = retry.Config{
	MaxAttempts:  retry.DefaultConfig.MaxAttempts,
	InitialDelay: retry.DefaultConfig.InitialDelay,
	MaxDelay:     retry.DefaultConfig.MaxDelay,
	ShouldRetry:  func(err error) bool { return errors.Is(err, errRetryable) },
}

// Config holds the per-user parameters read from the tool's config_schema.
type Config struct {
	BaseURL         string
	APIKey          string
	DefaultWorkflow string
}

// RunResult is the orchestrator's response to a triggered or polled run.
type RunResult struct {
	RunID  string         `json:"run_id"`
	Status string         `json:"status"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Client calls the orchestrator's REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client bound to cfg.
func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// TriggerRun starts a run of workflowName (cfg.DefaultWorkflow when empty)
// with input, retrying transient (5xx, connection) failures.
func (c *Client) TriggerRun(ctx context.Context, workflowName string, input map[string]any) (*RunResult, error) {
	if workflowName == "" {
		workflowName = c.cfg.DefaultWorkflow
	}
	if workflowName == "" {
		return nil, fmt.Errorf("workflow: no workflow name given and no default configured")
	}

	body, err := json.Marshal(map[string]any{"workflow": workflowName, "input": input})
	if err != nil {
		return nil, fmt.Errorf("workflow: encode trigger body: %w", err)
	}

	var result *RunResult
	err = retry.Do(ctx, retryConfig, func() error {
		res, doErr := c.do(ctx, http.MethodPost, "/runs", body)
		if doErr != nil {
			return doErr
		}
		result = res
		return nil
	})
	return result, err
}

// GetRun polls the current status of a previously triggered run.
func (c *Client) GetRun(ctx context.Context, runID string) (*RunResult, error) {
	var result *RunResult
	err := retry.Do(ctx, retryConfig, func() error {
		res, doErr := c.do(ctx, http.MethodGet, "/runs/"+runID, nil)
		if doErr != nil {
			return doErr
		}
		result = res
		return nil
	})
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*RunResult, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("workflow: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("workflow: read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("workflow: orchestrator returned %d: %s: %w", resp.StatusCode, string(data), errRetryable)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("workflow: request rejected (%d): %s", resp.StatusCode, string(data))
	}

	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("workflow: decode response: %w", err)
	}
	return &result, nil
}
