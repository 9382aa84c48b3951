// Package bayes is an in-process optimizer: a Gaussian-process surrogate
// over the normalized parameter space with an upper-confidence-bound
// acquisition rule. It fills in when no optimization service is reachable
// and keeps the same task history shape as the remote client.
package bayes

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halcyon-ml/hypersweep/core"
	"github.com/halcyon-ml/hypersweep/space"
)

// Options tune the search loop.
type Options struct {
	// Candidates is the number of random draws scored by the acquisition
	// rule per proposal.
	Candidates int
	// Warmup proposals are drawn uniformly before the surrogate is
	// consulted.
	Warmup int
	// Beta weighs exploration in the acquisition rule.
	Beta float64
	// Sigma is the surrogate's kernel width over the normalized space.
	Sigma float64
	// Seed fixes the proposal stream.
	Seed int64
}

func (o *Options) fill() {
	if o.Candidates <= 0 {
		o.Candidates = 64
	}
	if o.Warmup <= 0 {
		o.Warmup = 8
	}
	if o.Beta <= 0 {
		o.Beta = 2.0
	}
	if o.Sigma <= 0 {
		o.Sigma = 0.5
	}
}

type task struct {
	def       core.TaskDefinition
	surrogate *surrogate
	rng       *rand.Rand
	configs   []core.Configuration
	results   []core.Result
}

// Optimizer implements core.Optimizer in-process. An optional HistoryStore
// mirrors every configuration and result as they are produced.
type Optimizer struct {
	mu    sync.Mutex
	tasks map[string]*task

	opts  Options
	log   *zap.Logger
	store core.HistoryStore
}

// New creates an in-process optimizer. store may be nil.
func New(opts Options, log *zap.Logger, store core.HistoryStore) *Optimizer {
	opts.fill()
	return &Optimizer{
		tasks: make(map[string]*task),
		opts:  opts,
		log:   log,
		store: store,
	}
}

// CreateTask registers a task and seeds its history with the default
// parameter assignment. The default is recorded for reference only; the
// run loop never evaluates it, so flattening warns about it downstream.
func (o *Optimizer) CreateTask(ctx context.Context, def core.TaskDefinition) (string, error) {
	if err := def.Space.Validate(); err != nil {
		return "", fmt.Errorf("invalid search space: %w", err)
	}

	taskID := uuid.New().String()
	seed := core.Configuration{ID: uuid.New().String(), Params: space.DefaultParams()}

	o.mu.Lock()
	o.tasks[taskID] = &task{
		def:       def,
		surrogate: newSurrogate(o.opts.Sigma),
		rng:       rand.New(rand.NewSource(o.opts.Seed)),
		configs:   []core.Configuration{seed},
	}
	o.mu.Unlock()

	if o.store != nil {
		if err := o.store.RegisterTask(ctx, taskID, def.Title); err != nil {
			return "", fmt.Errorf("register task: %w", err)
		}
		if err := o.store.AppendConfiguration(ctx, taskID, seed); err != nil {
			return "", fmt.Errorf("record default configuration: %w", err)
		}
	}

	if o.log != nil {
		o.log.Info("task created",
			zap.String("task_id", taskID),
			zap.String("title", def.Title),
			zap.String("goal", string(def.Goal)),
		)
	}
	return taskID, nil
}

// Run executes the propose-evaluate-report loop for maxIterations rounds
// and returns the best observed result.
func (o *Optimizer) Run(ctx context.Context, taskID string, objective core.Objective, maxIterations int) (core.Outcome, error) {
	if maxIterations <= 0 {
		return core.Outcome{}, fmt.Errorf("iteration count %d must be positive", maxIterations)
	}

	o.mu.Lock()
	t, ok := o.tasks[taskID]
	o.mu.Unlock()
	if !ok {
		return core.Outcome{}, fmt.Errorf("unknown task %s", taskID)
	}

	var outcome core.Outcome
	for i := 0; i < maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		cfg := o.propose(t)
		if o.store != nil {
			if err := o.store.AppendConfiguration(ctx, taskID, cfg); err != nil {
				return outcome, fmt.Errorf("record configuration: %w", err)
			}
		}

		score, err := objective(ctx, cfg)
		if err != nil {
			return outcome, fmt.Errorf("iteration %d: %w", i+1, err)
		}

		res := core.Result{ID: uuid.New().String(), ConfigurationID: cfg.ID, Score: score}
		o.report(t, cfg, res)
		if o.store != nil {
			if err := o.store.AppendResult(ctx, taskID, res); err != nil {
				return outcome, fmt.Errorf("record result: %w", err)
			}
		}

		outcome.Iterations++
		if outcome.Iterations == 1 || t.def.Goal.Better(score, outcome.Best.Score) {
			outcome.Best = res
			outcome.BestConfiguration = cfg
		}

		if o.log != nil {
			o.log.Info("iteration finished",
				zap.String("task_id", taskID),
				zap.Int("iteration", i+1),
				zap.String("configuration_id", cfg.ID),
				zap.Float64("score", score),
				zap.Float64("best", outcome.Best.Score),
			)
		}
	}
	return outcome, nil
}

// Configurations returns the task's configuration history, default first.
func (o *Optimizer) Configurations(_ context.Context, taskID string) ([]core.Configuration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("unknown task %s", taskID)
	}
	out := make([]core.Configuration, len(t.configs))
	copy(out, t.configs)
	return out, nil
}

// Results returns the task's result history in evaluation order.
func (o *Optimizer) Results(_ context.Context, taskID string) ([]core.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("unknown task %s", taskID)
	}
	out := make([]core.Result, len(t.results))
	copy(out, t.results)
	return out, nil
}

// propose draws candidates from the space and keeps the one the acquisition
// rule likes best. During warmup the first candidate wins unconditionally.
func (o *Optimizer) propose(t *task) core.Configuration {
	o.mu.Lock()
	defer o.mu.Unlock()

	best := core.Configuration{
		ID:     uuid.New().String(),
		Params: space.Sample(t.def.Space, t.rng),
	}
	if len(t.results) < o.opts.Warmup {
		t.configs = append(t.configs, best)
		return best
	}

	sign := 1.0
	if t.def.Goal == core.GoalMinimize {
		sign = -1.0
	}
	bestScore := math.Inf(-1)
	for i := 0; i < o.opts.Candidates; i++ {
		params := best.Params
		if i > 0 {
			params = space.Sample(t.def.Space, t.rng)
		}
		cfg := core.Configuration{ID: best.ID, Params: params}
		mean, variance := t.surrogate.predict(space.Vector(t.def.Space, cfg))
		score := sign*mean + o.opts.Beta*math.Sqrt(math.Max(variance, 0))
		if score > bestScore {
			bestScore = score
			best = cfg
		}
	}

	t.configs = append(t.configs, best)
	return best
}

func (o *Optimizer) report(t *task, cfg core.Configuration, res core.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t.results = append(t.results, res)
	t.surrogate.update(space.Vector(t.def.Space, cfg), res.Score)
}
