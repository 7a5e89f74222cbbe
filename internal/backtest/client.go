package backtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "optionedge/internal/errors"
	"optionedge/internal/models"
	"optionedge/pkg/utils"
)

// JobStatus is the terminal (or not) state of a backtest job.
type JobStatus string

const (
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusRunning   JobStatus = "running"
)

// RunOutcome is the result of driving one backtest job to completion or to
// the polling deadline. A StatusRunning outcome is not an error: the job
// may still finish on the service side.
type RunOutcome struct {
	Status JobStatus
	Result *models.BacktestResult
	// Reason is human-readable: the failure message for failed jobs, the
	// deadline explanation for jobs still running.
	Reason string
}

// Client talks to the external backtest service: job submission, bounded
// polling, and synchronous single-trade simulation.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       zerolog.Logger
	pollInterval time.Duration
	maxPolls     int

	mu       sync.Mutex
	inflight map[string]bool
}

// NewClient creates a backtest service client.
func NewClient(baseURL string, pollInterval time.Duration, maxPolls int, logger zerolog.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if maxPolls <= 0 {
		maxPolls = 60
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		inflight:     make(map[string]bool),
	}
}

// Submit sends the backtest request and returns the service's job id.
func (c *Client) Submit(ctx context.Context, cfg models.BacktestConfig) (string, error) {
	body, err := c.post(ctx, "/backtests", NewRequest(cfg))
	if err != nil {
		return "", err
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrMalformedBody, err)
	}
	for _, key := range []string{"job-id", "job_id", "id"} {
		if id, ok := resp[key].(string); ok && id != "" {
			c.logger.Debug().Str("job_id", id).Str("symbol", cfg.Symbol).Msg("backtest submitted")
			return id, nil
		}
	}
	return "", apperrors.ErrNoJobID
}

// Poll issues a single status round-trip for the job. Only one poll may be
// outstanding per job id; a concurrent caller gets ErrPollInFlight.
func (c *Client) Poll(ctx context.Context, jobID string, cfg models.BacktestConfig) (*RunOutcome, error) {
	c.mu.Lock()
	if c.inflight[jobID] {
		c.mu.Unlock()
		return nil, apperrors.ErrPollInFlight
	}
	c.inflight[jobID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, jobID)
		c.mu.Unlock()
	}()

	body, err := c.get(ctx, "/backtests/"+jobID)
	if err != nil {
		return nil, err
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedBody, err)
	}

	status, _ := resp["status"].(string)
	switch strings.ToLower(status) {
	case "completed", "complete", "done":
		payload := resp
		if inner, ok := resp["result"].(map[string]any); ok {
			payload = inner
		}
		result, err := ParseResponse(payload, cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing completed backtest: %w", err)
		}
		return &RunOutcome{Status: StatusCompleted, Result: result}, nil
	case "failed", "error":
		reason, _ := resp["reason"].(string)
		if reason == "" {
			reason, _ = resp["error"].(string)
		}
		if reason == "" {
			reason = "backtest failed without a reason"
		}
		return &RunOutcome{Status: StatusFailed, Reason: reason}, nil
	default:
		return &RunOutcome{Status: StatusRunning}, nil
	}
}

// Run submits the job and polls on a fixed interval until it reaches a
// terminal status or the attempt budget runs out. Hitting the budget is a
// distinct "still running" outcome, not an error. Cancelling the context
// stops polling; the job itself keeps running on the service side.
func (c *Client) Run(ctx context.Context, cfg models.BacktestConfig) (*RunOutcome, error) {
	jobID, err := c.Submit(ctx, cfg)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		outcome, err := c.Poll(ctx, jobID, cfg)
		if err != nil {
			return nil, err
		}
		if outcome.Status != StatusRunning {
			c.logger.Info().
				Str("job_id", jobID).
				Str("status", string(outcome.Status)).
				Int("polls", attempt+1).
				Msg("backtest finished")
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, apperrors.ErrTimeout
			}
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return &RunOutcome{
		Status: StatusRunning,
		Reason: fmt.Sprintf("job %s still running after %d polls", jobID, c.maxPolls),
	}, nil
}

// Simulate runs a single-trade simulation: one synchronous round-trip, no
// polling.
func (c *Client) Simulate(ctx context.Context, cfg models.BacktestConfig) (*models.BacktestResult, error) {
	body, err := c.post(ctx, "/simulate", NewRequest(cfg))
	if err != nil {
		return nil, err
	}
	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedBody, err)
	}
	return ParseResponse(resp, cfg)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, data)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// do issues one HTTP round-trip, retrying only transport failures. A
// non-2xx response surfaces as a ServiceError with the raw body attached.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	resp, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() (*http.Response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewServiceError(resp.StatusCode, string(data), nil)
	}
	return data, nil
}
