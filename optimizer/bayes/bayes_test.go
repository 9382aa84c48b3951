package bayes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-ml/hypersweep/core"
	"github.com/halcyon-ml/hypersweep/space"
)

func boostingTask() core.TaskDefinition {
	return core.TaskDefinition{
		Title: "test sweep",
		Goal:  core.GoalMaximize,
		Space: space.Boosting(),
	}
}

// peaks near learning_rate 0.1
func syntheticObjective(_ context.Context, cfg core.Configuration) (float64, error) {
	lr := cfg.Params[space.ParamLearningRate].AsFloat()
	return 1 - 4*(lr-0.1)*(lr-0.1), nil
}

func TestCreateTaskSeedsDefaultConfiguration(t *testing.T) {
	o := New(Options{Seed: 1}, nil, nil)
	taskID, err := o.CreateTask(context.Background(), boostingTask())
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	configs, err := o.Configurations(context.Background(), taskID)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.True(t, configs[0].Params[space.ParamLeaves].Equal(core.IntValue(31)))

	results, err := o.Results(context.Background(), taskID)
	require.NoError(t, err)
	assert.Empty(t, results, "the default is recorded, never evaluated")
}

func TestCreateTaskRejectsInvalidSpace(t *testing.T) {
	o := New(Options{}, nil, nil)
	def := boostingTask()
	def.Space.Domains = append(def.Space.Domains, core.ParameterDomain{
		Name: "broken", Kind: core.KindFloat, Min: 2, Max: 1,
	})
	_, err := o.CreateTask(context.Background(), def)
	assert.ErrorContains(t, err, "invalid search space")
}

func TestRunHistoryShape(t *testing.T) {
	o := New(Options{Seed: 1, Warmup: 3, Candidates: 8}, nil, nil)
	taskID, err := o.CreateTask(context.Background(), boostingTask())
	require.NoError(t, err)

	const iterations = 10
	outcome, err := o.Run(context.Background(), taskID, syntheticObjective, iterations)
	require.NoError(t, err)
	assert.Equal(t, iterations, outcome.Iterations)

	configs, err := o.Configurations(context.Background(), taskID)
	require.NoError(t, err)
	assert.Len(t, configs, iterations+1, "default plus one per iteration")

	results, err := o.Results(context.Background(), taskID)
	require.NoError(t, err)
	assert.Len(t, results, iterations)
}

func TestRunProposalsSatisfySpace(t *testing.T) {
	o := New(Options{Seed: 5, Warmup: 2, Candidates: 16}, nil, nil)
	def := boostingTask()
	taskID, err := o.CreateTask(context.Background(), def)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), taskID, syntheticObjective, 15)
	require.NoError(t, err)

	configs, err := o.Configurations(context.Background(), taskID)
	require.NoError(t, err)
	for _, cfg := range configs {
		assert.NoError(t, def.Space.Satisfies(cfg), "configuration %s", cfg.ID)
	}
}

func TestRunTracksBest(t *testing.T) {
	o := New(Options{Seed: 2}, nil, nil)
	taskID, err := o.CreateTask(context.Background(), boostingTask())
	require.NoError(t, err)

	outcome, err := o.Run(context.Background(), taskID, syntheticObjective, 12)
	require.NoError(t, err)

	results, err := o.Results(context.Background(), taskID)
	require.NoError(t, err)
	for _, res := range results {
		assert.GreaterOrEqual(t, outcome.Best.Score, res.Score)
	}
	assert.Equal(t, outcome.Best.ConfigurationID, outcome.BestConfiguration.ID)
}

func TestRunMinimizeGoal(t *testing.T) {
	o := New(Options{Seed: 2}, nil, nil)
	def := boostingTask()
	def.Goal = core.GoalMinimize
	taskID, err := o.CreateTask(context.Background(), def)
	require.NoError(t, err)

	outcome, err := o.Run(context.Background(), taskID, syntheticObjective, 12)
	require.NoError(t, err)

	results, err := o.Results(context.Background(), taskID)
	require.NoError(t, err)
	for _, res := range results {
		assert.LessOrEqual(t, outcome.Best.Score, res.Score)
	}
}

func TestRunSurfacesObjectiveError(t *testing.T) {
	o := New(Options{Seed: 1}, nil, nil)
	taskID, err := o.CreateTask(context.Background(), boostingTask())
	require.NoError(t, err)

	sentinel := errors.New("training blew up")
	calls := 0
	_, err = o.Run(context.Background(), taskID, func(context.Context, core.Configuration) (float64, error) {
		calls++
		if calls == 3 {
			return 0, sentinel
		}
		return 0.5, nil
	}, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.ErrorContains(t, err, "iteration 3")
}

func TestRunUnknownTask(t *testing.T) {
	o := New(Options{}, nil, nil)
	_, err := o.Run(context.Background(), "nope", syntheticObjective, 1)
	assert.ErrorContains(t, err, "unknown task")
}

type recordingStore struct {
	tasks   []string
	configs []core.Configuration
	results []core.Result
}

func (r *recordingStore) RegisterTask(_ context.Context, taskID, _ string) error {
	r.tasks = append(r.tasks, taskID)
	return nil
}

func (r *recordingStore) AppendConfiguration(_ context.Context, _ string, cfg core.Configuration) error {
	r.configs = append(r.configs, cfg)
	return nil
}

func (r *recordingStore) AppendResult(_ context.Context, _ string, res core.Result) error {
	r.results = append(r.results, res)
	return nil
}

func (r *recordingStore) Configurations(context.Context, string) ([]core.Configuration, error) {
	return r.configs, nil
}

func (r *recordingStore) Results(context.Context, string) ([]core.Result, error) {
	return r.results, nil
}

func (r *recordingStore) Tasks(context.Context) ([]core.TaskRecord, error) { return nil, nil }

func TestRunMirrorsHistoryStore(t *testing.T) {
	store := &recordingStore{}
	o := New(Options{Seed: 1}, nil, store)
	taskID, err := o.CreateTask(context.Background(), boostingTask())
	require.NoError(t, err)

	_, err = o.Run(context.Background(), taskID, syntheticObjective, 4)
	require.NoError(t, err)

	assert.Equal(t, []string{taskID}, store.tasks)
	assert.Len(t, store.configs, 5)
	assert.Len(t, store.results, 4)
}
