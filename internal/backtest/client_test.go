package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "optionedge/internal/errors"
	"optionedge/internal/models"
)

var clientCfg = models.BacktestConfig{
	Symbol:       "XYZ",
	StrategyType: "iron-condor",
	Legs: []models.BacktestLeg{
		{Side: models.SideSell, Type: models.OptionPut, Delta: 15},
	},
	TargetDTE: 45,
	StartDate: "2021-08-31",
	EndDate:   "2026-08-31",
}

func newTestClient(url string, maxPolls int) *Client {
	return NewClient(url, time.Millisecond, maxPolls, zerolog.Nop())
}

func completedBody() map[string]any {
	return map[string]any{
		"status": "completed",
		"result": map[string]any{
			"trades": []any{
				map[string]any{"exit-date": "2026-01-20", "pnl": 100.0, "exit-reason": "profit"},
			},
		},
	}
}

func TestRunCompletes(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/backtests":
			var req Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad request body: %v", err)
			}
			if req.StrategyType != "iron-condor" || req.Legs[0].Delta != 15 {
				t.Errorf("wire request mangled: %+v", req)
			}
			json.NewEncoder(w).Encode(map[string]string{"job-id": "job-42"})
		case r.Method == http.MethodGet && r.URL.Path == "/backtests/job-42":
			if atomic.AddInt32(&polls, 1) < 3 {
				json.NewEncoder(w).Encode(map[string]string{"status": "running"})
				return
			}
			json.NewEncoder(w).Encode(completedBody())
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	outcome, err := newTestClient(srv.URL, 10).Run(context.Background(), clientCfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != StatusCompleted {
		t.Fatalf("status = %v, want completed", outcome.Status)
	}
	if outcome.Result == nil || len(outcome.Result.Trades) != 1 {
		t.Fatalf("result not parsed: %+v", outcome.Result)
	}
	if outcome.Result.Config.Symbol != "XYZ" {
		t.Error("result must carry the originating config")
	}
}

func TestRunStillRunningAfterBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"job-id": "job-7"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "running"})
	}))
	defer srv.Close()

	outcome, err := newTestClient(srv.URL, 3).Run(context.Background(), clientCfg)
	if err != nil {
		t.Fatalf("exhausting the poll budget is not an error, got %v", err)
	}
	if outcome.Status != StatusRunning {
		t.Fatalf("status = %v, want still running", outcome.Status)
	}
	if outcome.Reason == "" {
		t.Error("still-running outcome should explain the deadline")
	}
}

func TestRunFailedJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"job-id": "job-9"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "failed", "reason": "no data for symbol"})
	}))
	defer srv.Close()

	outcome, err := newTestClient(srv.URL, 3).Run(context.Background(), clientCfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != StatusFailed {
		t.Fatalf("status = %v, want failed", outcome.Status)
	}
	if outcome.Reason != "no data for symbol" {
		t.Errorf("reason = %q, want the server's message", outcome.Reason)
	}
}

func TestSubmitMissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Submit(context.Background(), clientCfg)
	if !errors.Is(err, apperrors.ErrNoJobID) {
		t.Errorf("err = %v, want ErrNoJobID", err)
	}
}

func TestServiceErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "symbol not supported", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Submit(context.Background(), clientCfg)
	var svcErr *apperrors.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want a ServiceError", err)
	}
	if svcErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", svcErr.StatusCode)
	}
}

func TestPollSingleFlight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "running"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	c.mu.Lock()
	c.inflight["job-1"] = true
	c.mu.Unlock()

	_, err := c.Poll(context.Background(), "job-1", clientCfg)
	if !errors.Is(err, apperrors.ErrPollInFlight) {
		t.Errorf("err = %v, want ErrPollInFlight", err)
	}

	// A different job is unaffected.
	if _, err := c.Poll(context.Background(), "job-2", clientCfg); err != nil {
		t.Errorf("independent job poll failed: %v", err)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"job-id": "job-3"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "running"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL, time.Hour, 10, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx, clientCfg)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestSubmitCancelledMidRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"job-id": "job-5"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL, 3).Submit(ctx, clientCfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in the chain", err)
	}
	if !errors.Is(err, apperrors.ErrConnectionFailed) {
		t.Errorf("err = %v, want ErrConnectionFailed in the chain", err)
	}
}

func TestSimulateSynchronous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simulate" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"trades": []any{
				map[string]any{"exit-date": "2026-01-20", "pnl": 42.0},
			},
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, 3).Simulate(context.Background(), clientCfg)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(result.Trades) != 1 || result.Trades[0].PnL != 42 {
		t.Errorf("result = %+v, want the single simulated trade", result)
	}
}
