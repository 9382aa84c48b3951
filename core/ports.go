package core

import "context"

// Objective scores one configuration. Higher is better for maximize tasks.
type Objective func(ctx context.Context, cfg Configuration) (float64, error)

// Optimizer is the capability boundary around the search engine, remote or
// in-process. The loop is strictly sequential from the caller's viewpoint:
// propose a configuration, block on the objective, report the result, repeat.
type Optimizer interface {
	CreateTask(ctx context.Context, def TaskDefinition) (string, error)
	Run(ctx context.Context, taskID string, objective Objective, maxIterations int) (Outcome, error)
	Configurations(ctx context.Context, taskID string) ([]Configuration, error)
	Results(ctx context.Context, taskID string) ([]Result, error)
}

// Hyperparams is the full tuple the objective evaluator accepts. Folds,
// Patience and MaxRounds are explicit fields rather than implicit defaults
// so the contract is self-contained.
type Hyperparams struct {
	Leaves          int
	LearningRate    float64
	Mode            BoostingMode
	BaggingFraction float64
	BinSampleCount  int
	MinLeafSamples  int
	L1              float64
	L2              float64
	FeatureFraction float64

	Folds     int
	Patience  int
	MaxRounds int
}

// BoostingMode selects the boosting variant.
type BoostingMode string

const (
	ModeStandard BoostingMode = "standard"
	ModeDropout  BoostingMode = "dropout"
	ModeSampling BoostingMode = "sampling"
)

// TrainSpec is one fold's training partition handed to the engine.
type TrainSpec struct {
	Classes  int
	Features [][]float64
	Labels   []int
	// Weights holds one class-balanced sample weight per row.
	Weights []float64
}

// Booster is one in-progress boosting model. Boost advances training by a
// single round; Predict returns a flat class-major score buffer of length
// Classes*len(features).
type Booster interface {
	Boost(ctx context.Context) error
	Predict(features [][]float64) []float64
}

// Engine constructs boosters. Training internals live behind this boundary
// and are not reimplemented here.
type Engine interface {
	NewBooster(ctx context.Context, params Hyperparams, spec TrainSpec) (Booster, error)
}

// HistoryStore is append-only persistence for the configuration and result
// histories of a task.
type HistoryStore interface {
	RegisterTask(ctx context.Context, taskID, title string) error
	AppendConfiguration(ctx context.Context, taskID string, cfg Configuration) error
	AppendResult(ctx context.Context, taskID string, res Result) error
	Configurations(ctx context.Context, taskID string) ([]Configuration, error)
	Results(ctx context.Context, taskID string) ([]Result, error)
	Tasks(ctx context.Context) ([]TaskRecord, error)
}

// TaskRecord is one row of the task index kept by a HistoryStore.
type TaskRecord struct {
	TaskID         string
	Title          string
	CreatedAtUnix  int64
	Configurations int
	Results        int
}
