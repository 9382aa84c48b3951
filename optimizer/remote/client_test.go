package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-ml/hypersweep/core"
	"github.com/halcyon-ml/hypersweep/pkg/limiter"
	"github.com/halcyon-ml/hypersweep/space"
)

// fakeService is a minimal in-memory optimization service.
type fakeService struct {
	mu        sync.Mutex
	taskID    string
	goal      core.Goal
	proposals []core.Configuration
	next      int
	reported  []core.Result
	authSeen  string
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Goal core.Goal `json:"goal"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.authSeen = r.Header.Get("Authorization")
		f.goal = req.Goal
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"task_id": f.taskID})
	})
	mux.HandleFunc("POST /v1/tasks/{id}/propose", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.next >= len(f.proposals) {
			http.Error(w, "exhausted", http.StatusConflict)
			return
		}
		cfg := f.proposals[f.next]
		f.next++
		json.NewEncoder(w).Encode(cfg)
	})
	mux.HandleFunc("POST /v1/tasks/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		var res core.Result
		if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.reported = append(f.reported, res)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /v1/tasks/{id}/configurations", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.proposals[:f.next])
	})
	mux.HandleFunc("GET /v1/tasks/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.reported)
	})
	mux.HandleFunc("GET /v1/tasks/{id}/best", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var best core.Result
		for i, res := range f.reported {
			if i == 0 || f.goal.Better(res.Score, best.Score) {
				best = res
			}
		}
		json.NewEncoder(w).Encode(best)
	})
	return mux
}

func proposal(id string, lr float64) core.Configuration {
	params := space.DefaultParams()
	params[space.ParamLearningRate] = core.FloatValue(lr)
	return core.Configuration{ID: id, Params: params}
}

func newTestClient(t *testing.T, svc *fakeService) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(svc.handler())
	t.Cleanup(server.Close)
	client := NewClient(Config{
		BaseURL:    server.URL,
		Credential: "secret-token",
		Retry:      &limiter.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2, RetryableCodes: []int{429, 500, 502, 503, 504}},
	}, nil, nil)
	return client, server
}

func TestCreateTask(t *testing.T) {
	svc := &fakeService{taskID: "task-42"}
	client, _ := newTestClient(t, svc)

	taskID, err := client.CreateTask(context.Background(), core.TaskDefinition{
		Title: "sweep",
		Goal:  core.GoalMaximize,
		Space: space.Boosting(),
	})
	require.NoError(t, err)
	assert.Equal(t, "task-42", taskID)
	assert.Equal(t, "Bearer secret-token", svc.authSeen, "credential passed through opaquely")
}

func TestCreateTaskRejectsInvalidSpace(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused"}, nil, nil)
	def := core.TaskDefinition{Space: core.SearchSpace{Domains: []core.ParameterDomain{
		{Name: "broken", Kind: core.KindFloat, Min: 2, Max: 1},
	}}}
	_, err := client.CreateTask(context.Background(), def)
	assert.ErrorContains(t, err, "invalid search space")
}

func TestRunLoop(t *testing.T) {
	svc := &fakeService{
		taskID: "task-1",
		proposals: []core.Configuration{
			proposal("c1", 0.05),
			proposal("c2", 0.1),
			proposal("c3", 0.2),
		},
	}
	client, _ := newTestClient(t, svc)

	scores := map[string]float64{"c1": 0.4, "c2": 0.9, "c3": 0.6}
	outcome, err := client.Run(context.Background(), "task-1", func(_ context.Context, cfg core.Configuration) (float64, error) {
		return scores[cfg.ID], nil
	}, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Iterations)
	assert.Equal(t, "c2", outcome.BestConfiguration.ID)
	assert.Equal(t, 0.9, outcome.Best.Score)

	require.Len(t, svc.reported, 3)
	assert.Equal(t, "c1", svc.reported[0].ConfigurationID)
	assert.Equal(t, 0.4, svc.reported[0].Score)
}

func TestRunMinimizeGoal(t *testing.T) {
	svc := &fakeService{
		taskID:    "task-min",
		proposals: []core.Configuration{proposal("c1", 0.1), proposal("c2", 0.2)},
	}
	client, _ := newTestClient(t, svc)

	taskID, err := client.CreateTask(context.Background(), core.TaskDefinition{
		Title: "sweep",
		Goal:  core.GoalMinimize,
		Space: space.Boosting(),
	})
	require.NoError(t, err)

	scores := map[string]float64{"c1": 0.9, "c2": 0.1}
	outcome, err := client.Run(context.Background(), taskID, func(_ context.Context, cfg core.Configuration) (float64, error) {
		return scores[cfg.ID], nil
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, 0.1, outcome.Best.Score, "minimize tasks keep the lowest score")
	assert.Equal(t, "c2", outcome.BestConfiguration.ID)
}

func TestRunResumedTaskUsesServiceBest(t *testing.T) {
	// The goal of a task created elsewhere is only known server-side, so
	// the loop's outcome must defer to the service's best.
	svc := &fakeService{
		taskID:    "task-old",
		goal:      core.GoalMinimize,
		proposals: []core.Configuration{proposal("c1", 0.1), proposal("c2", 0.2)},
	}
	client, _ := newTestClient(t, svc)

	scores := map[string]float64{"c1": 0.3, "c2": 0.7}
	outcome, err := client.Run(context.Background(), "task-old", func(_ context.Context, cfg core.Configuration) (float64, error) {
		return scores[cfg.ID], nil
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, 0.3, outcome.Best.Score)
	assert.Equal(t, "c1", outcome.BestConfiguration.ID)
}

func TestRunSurfacesObjectiveError(t *testing.T) {
	svc := &fakeService{taskID: "task-1", proposals: []core.Configuration{proposal("c1", 0.1)}}
	client, _ := newTestClient(t, svc)

	_, err := client.Run(context.Background(), "task-1", func(context.Context, core.Configuration) (float64, error) {
		return 0, fmt.Errorf("training failed")
	}, 1)
	assert.ErrorContains(t, err, "iteration 1")
	assert.ErrorContains(t, err, "training failed")
}

func TestProposeDecodesParamValues(t *testing.T) {
	svc := &fakeService{taskID: "t", proposals: []core.Configuration{proposal("c1", 0.07)}}
	client, _ := newTestClient(t, svc)

	cfg, err := client.Propose(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "c1", cfg.ID)
	assert.True(t, cfg.Params[space.ParamLearningRate].Equal(core.FloatValue(0.07)))
	assert.Equal(t, core.KindInt, cfg.Params[space.ParamLeaves].Kind, "whole numbers decode as ints")
}

func TestHistoryQueries(t *testing.T) {
	svc := &fakeService{
		taskID:    "task-1",
		proposals: []core.Configuration{proposal("c1", 0.1), proposal("c2", 0.2)},
	}
	client, _ := newTestClient(t, svc)

	_, err := client.Run(context.Background(), "task-1", func(context.Context, core.Configuration) (float64, error) {
		return 0.5, nil
	}, 2)
	require.NoError(t, err)

	configs, err := client.Configurations(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Len(t, configs, 2)

	results, err := client.Results(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	best, err := client.Best(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, 0.5, best.Score)
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"task_id": "task-9"})
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL: server.URL,
		Retry:   &limiter.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2, RetryableCodes: []int{503}},
	}, nil, nil)

	taskID, err := client.CreateTask(context.Background(), core.TaskDefinition{Space: space.Boosting()})
	require.NoError(t, err)
	assert.Equal(t, "task-9", taskID)
	assert.Equal(t, 3, calls)
}

func TestNonRetryableErrorSurfaces(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL: server.URL,
		Retry:   &limiter.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2, RetryableCodes: []int{503}},
	}, nil, nil)

	_, err := client.Propose(context.Background(), "t")
	require.Error(t, err)

	var httpErr *limiter.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, 1, calls, "client errors are not retried")
}
