package evaluate

import (
	"fmt"

	"github.com/halcyon-ml/hypersweep/core"
	"github.com/halcyon-ml/hypersweep/space"
)

// Defaults for the evaluation loop controls.
const (
	DefaultFolds     = 5
	DefaultPatience  = 100
	DefaultMaxRounds = 10000
)

// FromConfiguration decodes a configuration produced by an optimizer into
// the evaluator's hyperparameter tuple, filling in loop-control defaults.
func FromConfiguration(cfg core.Configuration) (core.Hyperparams, error) {
	h := core.Hyperparams{
		Folds:     DefaultFolds,
		Patience:  DefaultPatience,
		MaxRounds: DefaultMaxRounds,
	}

	intParam := func(name string) (int, error) {
		v, ok := cfg.Params[name]
		if !ok {
			return 0, fmt.Errorf("configuration %s: missing parameter %s", cfg.ID, name)
		}
		if v.Kind != core.KindInt {
			return 0, fmt.Errorf("configuration %s: parameter %s is not an int", cfg.ID, name)
		}
		return int(v.Int), nil
	}
	floatParam := func(name string) (float64, error) {
		v, ok := cfg.Params[name]
		if !ok {
			return 0, fmt.Errorf("configuration %s: missing parameter %s", cfg.ID, name)
		}
		if v.Kind != core.KindFloat && v.Kind != core.KindInt {
			return 0, fmt.Errorf("configuration %s: parameter %s is not numeric", cfg.ID, name)
		}
		return v.AsFloat(), nil
	}

	var err error
	if h.Leaves, err = intParam(space.ParamLeaves); err != nil {
		return core.Hyperparams{}, err
	}
	if h.LearningRate, err = floatParam(space.ParamLearningRate); err != nil {
		return core.Hyperparams{}, err
	}
	mode, ok := cfg.Params[space.ParamMode]
	if !ok || mode.Kind != core.KindCategorical {
		return core.Hyperparams{}, fmt.Errorf("configuration %s: missing categorical parameter %s", cfg.ID, space.ParamMode)
	}
	h.Mode = core.BoostingMode(mode.Str)
	if h.BaggingFraction, err = floatParam(space.ParamBaggingFraction); err != nil {
		return core.Hyperparams{}, err
	}
	if h.BinSampleCount, err = intParam(space.ParamBinSampleCount); err != nil {
		return core.Hyperparams{}, err
	}
	if h.MinLeafSamples, err = intParam(space.ParamMinLeafSamples); err != nil {
		return core.Hyperparams{}, err
	}
	if h.L1, err = floatParam(space.ParamL1); err != nil {
		return core.Hyperparams{}, err
	}
	if h.L2, err = floatParam(space.ParamL2); err != nil {
		return core.Hyperparams{}, err
	}
	if h.FeatureFraction, err = floatParam(space.ParamFeatureFraction); err != nil {
		return core.Hyperparams{}, err
	}

	if err := Validate(h); err != nil {
		return core.Hyperparams{}, fmt.Errorf("configuration %s: %w", cfg.ID, err)
	}
	return h, nil
}

// ToParams encodes a hyperparameter tuple as configuration parameters.
func ToParams(h core.Hyperparams) map[string]core.ParamValue {
	return map[string]core.ParamValue{
		space.ParamLeaves:          core.IntValue(int64(h.Leaves)),
		space.ParamLearningRate:    core.FloatValue(h.LearningRate),
		space.ParamMode:            core.StringValue(string(h.Mode)),
		space.ParamBaggingFraction: core.FloatValue(h.BaggingFraction),
		space.ParamBinSampleCount:  core.IntValue(int64(h.BinSampleCount)),
		space.ParamMinLeafSamples:  core.IntValue(int64(h.MinLeafSamples)),
		space.ParamL1:              core.FloatValue(h.L1),
		space.ParamL2:              core.FloatValue(h.L2),
		space.ParamFeatureFraction: core.FloatValue(h.FeatureFraction),
	}
}

// Validate checks the tuple against the declared parameter bounds.
func Validate(h core.Hyperparams) error {
	if h.Leaves < 3 || h.Leaves > 50 {
		return fmt.Errorf("leaves %d outside [3, 50]", h.Leaves)
	}
	if h.LearningRate < 0.025 || h.LearningRate > 0.25 {
		return fmt.Errorf("learning rate %v outside [0.025, 0.25]", h.LearningRate)
	}
	switch h.Mode {
	case core.ModeStandard, core.ModeDropout, core.ModeSampling:
	default:
		return fmt.Errorf("unknown boosting mode %q", h.Mode)
	}
	if h.BaggingFraction < 0.5 || h.BaggingFraction > 1.0 {
		return fmt.Errorf("bagging fraction %v outside [0.5, 1.0]", h.BaggingFraction)
	}
	if h.Mode == core.ModeSampling && h.BaggingFraction != 1.0 {
		return fmt.Errorf("sampling mode requires bagging fraction 1.0, got %v", h.BaggingFraction)
	}
	if h.BinSampleCount < 2000 || h.BinSampleCount > 100000 {
		return fmt.Errorf("bin sample count %d outside [2000, 100000]", h.BinSampleCount)
	}
	if h.MinLeafSamples < 5 || h.MinLeafSamples > 80 {
		return fmt.Errorf("min leaf samples %d outside [5, 80]", h.MinLeafSamples)
	}
	if h.L1 < 0 || h.L1 > 1 {
		return fmt.Errorf("l1 penalty %v outside [0, 1]", h.L1)
	}
	if h.L2 < 0 || h.L2 > 1 {
		return fmt.Errorf("l2 penalty %v outside [0, 1]", h.L2)
	}
	if h.FeatureFraction < 0.5 || h.FeatureFraction > 1.0 {
		return fmt.Errorf("feature fraction %v outside [0.5, 1.0]", h.FeatureFraction)
	}
	if h.Folds < 2 {
		return fmt.Errorf("fold count %d must be at least 2", h.Folds)
	}
	if h.Patience <= 0 {
		return fmt.Errorf("patience %d must be positive", h.Patience)
	}
	if h.MaxRounds <= 0 {
		return fmt.Errorf("max rounds %d must be positive", h.MaxRounds)
	}
	return nil
}
