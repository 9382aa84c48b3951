// Package remote drives a hosted optimization service over JSON HTTP. The
// service owns the search strategy; this client owns the loop: propose a
// configuration, run the objective, report the score, repeat.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/halcyon-ml/hypersweep/core"
	"github.com/halcyon-ml/hypersweep/pkg/limiter"
	"github.com/halcyon-ml/hypersweep/pkg/logging"
	"github.com/halcyon-ml/hypersweep/pkg/metrics"
)

// Config holds client settings for one optimization service endpoint.
type Config struct {
	// BaseURL is the service root, without a trailing slash.
	BaseURL string
	// Credential is sent opaquely as a bearer token. The client never
	// inspects it.
	Credential string

	Timeout           time.Duration
	RequestsPerMinute int
	Retry             *limiter.RetryConfig
}

// Client implements core.Optimizer against a remote service.
type Client struct {
	cfg     Config
	http    *http.Client
	retry   *limiter.RetryManager
	breaker *gobreaker.CircuitBreaker
	rate    *limiter.RateLimiter
	log     *zap.Logger
	metrics *metrics.SweepMetrics

	mu    sync.Mutex
	goals map[string]core.Goal
}

// NewClient builds a client with retry, circuit-breaker and rate-limit
// protection around every call. log and m may be nil.
func NewClient(cfg Config, log *zap.Logger, m *metrics.SweepMetrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		retry:   limiter.NewRetryManager(cfg.Retry),
		breaker: limiter.NewCircuitBreaker(limiter.DefaultCircuitBreakerConfig("optimizer"), log),
		rate:    limiter.NewRateLimiter(cfg.RequestsPerMinute),
		log:     log,
		metrics: m,
		goals:   make(map[string]core.Goal),
	}
}

type createTaskRequest struct {
	Title string           `json:"title"`
	Goal  core.Goal        `json:"goal"`
	Space core.SearchSpace `json:"space"`
}

type createTaskResponse struct {
	TaskID string `json:"task_id"`
}

// CreateTask registers the search with the service and returns the task ID
// to run (or later resume) against.
func (c *Client) CreateTask(ctx context.Context, def core.TaskDefinition) (string, error) {
	if err := def.Space.Validate(); err != nil {
		return "", fmt.Errorf("invalid search space: %w", err)
	}

	var resp createTaskResponse
	err := c.call(ctx, "create_task", "", http.MethodPost, "/v1/tasks", createTaskRequest{
		Title: def.Title,
		Goal:  def.Goal,
		Space: def.Space,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("service returned an empty task id")
	}
	c.mu.Lock()
	c.goals[resp.TaskID] = def.Goal
	c.mu.Unlock()
	return resp.TaskID, nil
}

// Propose asks the service for the next configuration to evaluate.
func (c *Client) Propose(ctx context.Context, taskID string) (core.Configuration, error) {
	var cfg core.Configuration
	err := c.call(ctx, "propose", taskID, http.MethodPost,
		fmt.Sprintf("/v1/tasks/%s/propose", taskID), nil, &cfg)
	if err != nil {
		return core.Configuration{}, err
	}
	if cfg.ID == "" {
		return core.Configuration{}, fmt.Errorf("service proposed a configuration without an id")
	}
	return cfg, nil
}

// Report sends one evaluation result back to the service.
func (c *Client) Report(ctx context.Context, taskID string, res core.Result) error {
	return c.call(ctx, "report", taskID, http.MethodPost,
		fmt.Sprintf("/v1/tasks/%s/results", taskID), res, nil)
}

// Run executes the propose-evaluate-report loop for maxIterations rounds.
// The service decides what to propose; the best result is tracked locally,
// against the task's goal, so a service-side tie-break cannot disagree with
// what was observed. For a task this client did not create the goal is only
// known server-side, so the loop's outcome is reconciled with the service's
// best afterwards.
func (c *Client) Run(ctx context.Context, taskID string, objective core.Objective, maxIterations int) (core.Outcome, error) {
	if maxIterations <= 0 {
		return core.Outcome{}, fmt.Errorf("iteration count %d must be positive", maxIterations)
	}

	c.mu.Lock()
	goal, goalKnown := c.goals[taskID]
	c.mu.Unlock()

	var outcome core.Outcome
	seen := make(map[string]core.Configuration)
	for i := 0; i < maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		cfg, err := c.Propose(ctx, taskID)
		if err != nil {
			return outcome, fmt.Errorf("iteration %d: propose: %w", i+1, err)
		}

		score, err := objective(ctx, cfg)
		if err != nil {
			return outcome, fmt.Errorf("iteration %d: %w", i+1, err)
		}

		res := core.Result{ConfigurationID: cfg.ID, Score: score}
		if err := c.Report(ctx, taskID, res); err != nil {
			return outcome, fmt.Errorf("iteration %d: report: %w", i+1, err)
		}

		seen[cfg.ID] = cfg
		outcome.Iterations++
		if outcome.Iterations == 1 || goal.Better(score, outcome.Best.Score) {
			outcome.Best = res
			outcome.BestConfiguration = cfg
		}
	}

	if !goalKnown {
		if err := c.reconcileBest(ctx, taskID, seen, &outcome); err != nil {
			return outcome, fmt.Errorf("reconcile best: %w", err)
		}
	}
	return outcome, nil
}

// reconcileBest replaces the outcome's best with the service's view of the
// task, resolving the winning configuration from the loop's proposals or,
// when it predates this run, from the task's configuration history.
func (c *Client) reconcileBest(ctx context.Context, taskID string, seen map[string]core.Configuration, outcome *core.Outcome) error {
	best, err := c.Best(ctx, taskID)
	if err != nil {
		return err
	}
	if cfg, ok := seen[best.ConfigurationID]; ok {
		outcome.Best = best
		outcome.BestConfiguration = cfg
		return nil
	}
	configs, err := c.Configurations(ctx, taskID)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if cfg.ID == best.ConfigurationID {
			outcome.Best = best
			outcome.BestConfiguration = cfg
			return nil
		}
	}
	return fmt.Errorf("service best references unknown configuration %q", best.ConfigurationID)
}

// Configurations fetches the task's full configuration history, including
// entries recorded by earlier runs of the same task.
func (c *Client) Configurations(ctx context.Context, taskID string) ([]core.Configuration, error) {
	var configs []core.Configuration
	err := c.call(ctx, "configurations", taskID, http.MethodGet,
		fmt.Sprintf("/v1/tasks/%s/configurations", taskID), nil, &configs)
	return configs, err
}

// Results fetches the task's full result history.
func (c *Client) Results(ctx context.Context, taskID string) ([]core.Result, error) {
	var results []core.Result
	err := c.call(ctx, "results", taskID, http.MethodGet,
		fmt.Sprintf("/v1/tasks/%s/results", taskID), nil, &results)
	return results, err
}

// Best fetches the service's view of the task's best result so far.
func (c *Client) Best(ctx context.Context, taskID string) (core.Result, error) {
	var res core.Result
	err := c.call(ctx, "best", taskID, http.MethodGet,
		fmt.Sprintf("/v1/tasks/%s/best", taskID), nil, &res)
	return res, err
}

// call performs one protected JSON round trip: rate limit, then retry with
// backoff, with each attempt passing through the circuit breaker.
func (c *Client) call(ctx context.Context, operation, taskID, method, path string, body, out any) error {
	start := time.Now()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", operation, err)
		}
	}

	if err := c.rate.Wait(ctx); err != nil {
		return err
	}

	status := 0
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		_, err := c.breaker.Execute(func() (any, error) {
			s, err := c.attempt(ctx, method, path, payload, out)
			status = s
			return nil, err
		})
		return err
	})

	elapsed := time.Since(start)
	if c.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.ObserveOptimizerCall(operation, outcome, elapsed)
	}
	if c.log != nil {
		logging.LogRemoteCall(c.log, operation, taskID, status, elapsed)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &limiter.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			Body:       string(data),
		}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
