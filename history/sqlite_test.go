package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-ml/hypersweep/core"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleConfig(id string, leaves int64) core.Configuration {
	return core.Configuration{
		ID: id,
		Params: map[string]core.ParamValue{
			"leaves":        core.IntValue(leaves),
			"learning_rate": core.FloatValue(0.1),
			"mode":          core.StringValue("standard"),
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterTask(ctx, "task-1", "march sweep"))
	require.NoError(t, store.AppendConfiguration(ctx, "task-1", sampleConfig("c1", 31)))
	require.NoError(t, store.AppendConfiguration(ctx, "task-1", sampleConfig("c2", 17)))
	require.NoError(t, store.AppendResult(ctx, "task-1", core.Result{
		ID: "r1", ConfigurationID: "c2", Score: 0.81,
		Metadata: map[string]string{"folds": "5"},
	}))

	configs, err := store.Configurations(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "c1", configs[0].ID, "append order preserved")
	assert.True(t, configs[0].Params["leaves"].Equal(core.IntValue(31)))
	assert.Equal(t, "standard", configs[1].Params["mode"].Str)

	results, err := store.Results(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ConfigurationID)
	assert.Equal(t, 0.81, results[0].Score)
	assert.Equal(t, map[string]string{"folds": "5"}, results[0].Metadata)
}

func TestStoreIsolatesTasks(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendConfiguration(ctx, "task-a", sampleConfig("a1", 10)))
	require.NoError(t, store.AppendConfiguration(ctx, "task-b", sampleConfig("b1", 20)))

	configs, err := store.Configurations(ctx, "task-a")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "a1", configs[0].ID)
}

func TestStoreEmptyHistories(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	configs, err := store.Configurations(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, configs)

	results, err := store.Results(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreTaskIndex(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterTask(ctx, "task-1", "first"))
	require.NoError(t, store.RegisterTask(ctx, "task-1", "renamed"))
	require.NoError(t, store.AppendConfiguration(ctx, "task-1", sampleConfig("c1", 31)))
	require.NoError(t, store.AppendResult(ctx, "task-1", core.Result{ID: "r1", ConfigurationID: "c1", Score: 0.5}))

	tasks, err := store.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1, "re-registration is a no-op")
	assert.Equal(t, "first", tasks[0].Title)
	assert.Equal(t, 1, tasks[0].Configurations)
	assert.Equal(t, 1, tasks[0].Results)
}
