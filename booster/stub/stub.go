// Package stub provides a deterministic boosting engine for tests and
// offline smoke runs. It is not a real gradient-boosting implementation:
// training internals live behind the core.Engine boundary and are supplied
// by an external library in production setups.
package stub

import (
	"context"
	"fmt"
	"math"

	"github.com/halcyon-ml/hypersweep/core"
)

// Engine implements core.Engine with a nearest-centroid learner whose
// predictions sharpen with each boosting round. Identical inputs always
// produce identical score buffers.
type Engine struct{}

// NewEngine returns a stub engine.
func NewEngine() *Engine { return &Engine{} }

func (e *Engine) NewBooster(_ context.Context, params core.Hyperparams, spec core.TrainSpec) (core.Booster, error) {
	if len(spec.Features) == 0 {
		return nil, fmt.Errorf("empty training partition")
	}
	if len(spec.Features) != len(spec.Labels) {
		return nil, fmt.Errorf("got %d rows but %d labels", len(spec.Features), len(spec.Labels))
	}
	if len(spec.Weights) != 0 && len(spec.Weights) != len(spec.Labels) {
		return nil, fmt.Errorf("got %d rows but %d weights", len(spec.Labels), len(spec.Weights))
	}

	dims := len(spec.Features[0])
	centroids := make([][]float64, spec.Classes)
	totals := make([]float64, spec.Classes)
	for c := range centroids {
		centroids[c] = make([]float64, dims)
	}
	for i, row := range spec.Features {
		label := spec.Labels[i]
		if label < 0 || label >= spec.Classes {
			return nil, fmt.Errorf("row %d: label %d out of range [0, %d)", i, label, spec.Classes)
		}
		w := 1.0
		if len(spec.Weights) > 0 {
			w = spec.Weights[i]
		}
		for j, v := range row {
			centroids[label][j] += w * v
		}
		totals[label] += w
	}
	for c := range centroids {
		if totals[c] == 0 {
			// class absent from this partition; it keeps a zero
			// centroid and never wins an argmax decisively
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] /= totals[c]
		}
	}

	return &booster{params: params, centroids: centroids, seen: totals}, nil
}

type booster struct {
	params    core.Hyperparams
	centroids [][]float64
	seen      []float64
	rounds    int
}

func (b *booster) Boost(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.rounds++
	return nil
}

// Predict returns a flat class-major buffer: scores[c*n+i] is the score of
// class c for sample i. Scores sharpen toward the centroid decision as
// rounds accumulate, at a pace set by the learning rate.
func (b *booster) Predict(features [][]float64) []float64 {
	n := len(features)
	classes := len(b.centroids)
	strength := 1 - math.Pow(1-b.params.LearningRate, float64(b.rounds))

	scores := make([]float64, classes*n)
	for i, row := range features {
		for c := 0; c < classes; c++ {
			if b.seen[c] == 0 {
				continue
			}
			var sum float64
			for j, v := range row {
				d := v - b.centroids[c][j]
				sum += d * d
			}
			scores[c*n+i] = strength / (1 + math.Sqrt(sum))
		}
	}
	return scores
}
