// Package space declares hyperparameter search spaces and samples them.
package space

import (
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"

	"github.com/halcyon-ml/hypersweep/core"
)

// Parameter names of the boosting search space.
const (
	ParamLeaves          = "leaves"
	ParamLearningRate    = "learning_rate"
	ParamMode            = "mode"
	ParamBaggingFraction = "bagging_fraction"
	ParamBinSampleCount  = "bin_sample_count"
	ParamMinLeafSamples  = "min_leaf_samples"
	ParamL1              = "l1"
	ParamL2              = "l2"
	ParamFeatureFraction = "feature_fraction"
)

// Boosting returns the search space for the gradient-boosting classifier:
// nine parameter domains plus the one conditional constraint. The sampling
// variant draws its own row subsets, so it requires full bagging.
func Boosting() core.SearchSpace {
	return core.SearchSpace{
		Domains: []core.ParameterDomain{
			{Name: ParamLeaves, Kind: core.KindInt, Min: 3, Max: 50},
			{Name: ParamLearningRate, Kind: core.KindFloat, Min: 0.025, Max: 0.25, Distribution: core.DistLogUniform},
			{Name: ParamMode, Kind: core.KindCategorical, Values: []string{
				string(core.ModeStandard), string(core.ModeDropout), string(core.ModeSampling),
			}},
			{Name: ParamBaggingFraction, Kind: core.KindFloat, Min: 0.5, Max: 1.0},
			{Name: ParamBinSampleCount, Kind: core.KindInt, Min: 2000, Max: 100000},
			{Name: ParamMinLeafSamples, Kind: core.KindInt, Min: 5, Max: 80},
			{Name: ParamL1, Kind: core.KindFloat, Min: 0.0, Max: 1.0},
			{Name: ParamL2, Kind: core.KindFloat, Min: 0.0, Max: 1.0},
			{Name: ParamFeatureFraction, Kind: core.KindFloat, Min: 0.5, Max: 1.0},
		},
		Constraints: []core.Constraint{
			{
				WhenParam: ParamMode,
				Equals:    core.StringValue(string(core.ModeSampling)),
				ThenParam: ParamBaggingFraction,
				MustEqual: core.FloatValue(1.0),
			},
		},
	}
}

// DefaultParams is the baseline parameter assignment a task starts from.
func DefaultParams() map[string]core.ParamValue {
	return map[string]core.ParamValue{
		ParamLeaves:          core.IntValue(31),
		ParamLearningRate:    core.FloatValue(0.1),
		ParamMode:            core.StringValue(string(core.ModeStandard)),
		ParamBaggingFraction: core.FloatValue(1.0),
		ParamBinSampleCount:  core.IntValue(20000),
		ParamMinLeafSamples:  core.IntValue(20),
		ParamL1:              core.FloatValue(0.0),
		ParamL2:              core.FloatValue(0.0),
		ParamFeatureFraction: core.FloatValue(1.0),
	}
}

// Sample draws one random parameter assignment from the space, honoring
// each domain's distribution, then repairs constraint violations by forcing
// the dependent parameter to its required value.
func Sample(s core.SearchSpace, rng *rand.Rand) map[string]core.ParamValue {
	params := make(map[string]core.ParamValue, len(s.Domains))
	for _, d := range s.Domains {
		params[d.Name] = sampleDomain(d, rng)
	}
	for _, c := range s.Constraints {
		if got, ok := params[c.WhenParam]; ok && got.Equal(c.Equals) {
			params[c.ThenParam] = c.MustEqual
		}
	}
	return params
}

func sampleDomain(d core.ParameterDomain, rng *rand.Rand) core.ParamValue {
	switch d.Kind {
	case core.KindCategorical:
		return core.StringValue(d.Values[rng.Intn(len(d.Values))])
	case core.KindInt:
		lo, hi := int64(d.Min), int64(d.Max)
		if d.Distribution == core.DistLogUniform {
			v := math.Exp(uniform(rng, math.Log(d.Min), math.Log(d.Max)))
			return core.IntValue(clamp(int64(math.Round(v)), lo, hi))
		}
		return core.IntValue(lo + rng.Int63n(hi-lo+1))
	default:
		if d.Distribution == core.DistLogUniform {
			v := math.Exp(uniform(rng, math.Log(d.Min), math.Log(d.Max)))
			return core.FloatValue(clamp(v, d.Min, d.Max))
		}
		return core.FloatValue(uniform(rng, d.Min, d.Max))
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Vector encodes a configuration as a point in [0,1]^n, one dimension per
// domain in declaration order. Log-uniform domains are mapped in log space
// and categorical values by index, so surrogate-model distances stay
// comparable across dimensions.
func Vector(s core.SearchSpace, cfg core.Configuration) []float64 {
	out := make([]float64, len(s.Domains))
	for i, d := range s.Domains {
		v, ok := cfg.Params[d.Name]
		if !ok {
			continue
		}
		switch d.Kind {
		case core.KindCategorical:
			if len(d.Values) > 1 {
				for idx, allowed := range d.Values {
					if allowed == v.Str {
						out[i] = float64(idx) / float64(len(d.Values)-1)
						break
					}
				}
			}
		default:
			lo, hi, x := d.Min, d.Max, v.AsFloat()
			if d.Distribution == core.DistLogUniform {
				lo, hi, x = math.Log(lo), math.Log(hi), math.Log(x)
			}
			if hi > lo {
				out[i] = clamp((x-lo)/(hi-lo), 0.0, 1.0)
			}
		}
	}
	return out
}
