package platform

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/channelkit/channelkit/pkg/errors"
)

// Run states reported by the platform.
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// RunRequest submits a graph for interpretation.
type RunRequest struct {
	// Channel is the deployed channel name.
	Channel string `json:"channel"`
	// Graph is the descriptor YAML to interpret. When empty, the
	// channel's default graph is used.
	Graph string `json:"graph,omitempty"`
	// GraphName names the descriptor for display.
	GraphName string `json:"graph_name,omitempty"`
	// LogLevel sets the interpreter's log verbosity.
	LogLevel string `json:"loglevel,omitempty"`
	// Seed fixes the interpreter's randomization seed when non-nil.
	Seed *int64 `json:"seed,omitempty"`
	// Runs is the number of interpretations; zero means one.
	Runs int `json:"runs,omitempty"`
}

// Run is a submitted interpretation job.
type Run struct {
	ID        string     `json:"id"`
	Channel   string     `json:"channel"`
	GraphName string     `json:"graph_name"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	// Datasets lists the output dataset IDs once the run succeeds.
	Datasets []string `json:"datasets,omitempty"`
}

// Done reports whether the run has reached a terminal state.
func (r *Run) Done() bool {
	switch r.Status {
	case RunSucceeded, RunFailed, RunCancelled:
		return true
	}
	return false
}

// SubmitRun submits a run. An idempotency key is attached so a retried
// submission after a network failure cannot start the run twice.
func (c *Client) SubmitRun(ctx context.Context, req RunRequest) (*Run, error) {
	if req.Channel == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "run request missing channel")
	}
	payload := struct {
		RunRequest
		IdempotencyKey string `json:"idempotency_key"`
	}{RunRequest: req, IdempotencyKey: uuid.NewString()}

	var run Run
	if err := c.Post(ctx, "/api/runs", payload, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.Get(ctx, "/api/runs/"+url.PathEscape(id), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// RunLogs returns the run's interpreter log starting at byte offset.
// The next offset to poll from is returned alongside the text.
func (c *Client) RunLogs(ctx context.Context, id string, offset int64) (string, int64, error) {
	text, err := c.GetText(ctx, fmt.Sprintf("/api/runs/%s/logs?offset=%d", url.PathEscape(id), offset))
	if err != nil {
		return "", offset, err
	}
	return text, offset + int64(len(text)), nil
}

// WatchRun polls the run until it reaches a terminal state, invoking
// onUpdate for every status observation. Polling respects the context.
func (c *Client) WatchRun(ctx context.Context, id string, interval time.Duration, onUpdate func(*Run)) (*Run, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := c.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(run)
		}
		if run.Done() {
			return run, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
