// Package evaluate scores hyperparameter configurations by stratified
// cross-validation of a gradient-boosting classifier.
package evaluate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/halcyon-ml/hypersweep/core"
	"github.com/halcyon-ml/hypersweep/dataset"
	"github.com/halcyon-ml/hypersweep/pkg/cache"
	"github.com/halcyon-ml/hypersweep/pkg/logging"
	"github.com/halcyon-ml/hypersweep/pkg/metrics"
)

// Evaluator runs the cross-validated objective. The dataset is read-only;
// no state is shared across invocations besides it, so evaluations are
// independent.
type Evaluator struct {
	Engine  core.Engine
	Log     *zap.Logger
	Metrics *metrics.SweepMetrics
	Cache   *cache.ScoreCache

	// Seed fixes fold assignment; a fixed seed makes scores reproducible.
	Seed int64
	// Workers bounds concurrent fold training. Zero or one keeps the
	// folds strictly sequential.
	Workers int

	// Folds, Patience and MaxRounds override the loop-control defaults
	// for decoded configurations when positive.
	Folds     int
	Patience  int
	MaxRounds int
}

// loopControls applies the evaluator's loop-control overrides to a decoded
// tuple.
func (e *Evaluator) loopControls(h core.Hyperparams) core.Hyperparams {
	if e.Folds > 0 {
		h.Folds = e.Folds
	}
	if e.Patience > 0 {
		h.Patience = e.Patience
	}
	if e.MaxRounds > 0 {
		h.MaxRounds = e.MaxRounds
	}
	return h
}

// Evaluate returns the mean held-out macro-F1 across folds for one
// hyperparameter tuple. The returned score lies in [0, 1]; higher is
// better.
func (e *Evaluator) Evaluate(ctx context.Context, data *dataset.Table, h core.Hyperparams) (float64, error) {
	if err := Validate(h); err != nil {
		return 0, err
	}
	if e.Engine == nil {
		return 0, fmt.Errorf("no boosting engine configured")
	}
	classes := len(data.Classes)
	if classes < 2 {
		return 0, fmt.Errorf("dataset has %d classes, need at least 2", classes)
	}

	folds, err := StratifiedFolds(data.Labels, h.Folds, e.Seed)
	if err != nil {
		return 0, err
	}

	scores := make([]float64, len(folds))
	group, gctx := errgroup.WithContext(ctx)
	if e.Workers > 1 {
		group.SetLimit(e.Workers)
	} else {
		group.SetLimit(1)
	}
	for i := range folds {
		group.Go(func() error {
			score, err := e.evaluateFold(gctx, data, h, folds, i)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), nil
}

// evaluateFold trains one fold round by round and returns the best held-out
// macro-F1 seen before early stopping.
func (e *Evaluator) evaluateFold(ctx context.Context, data *dataset.Table, h core.Hyperparams, folds [][]int, fold int) (float64, error) {
	classes := len(data.Classes)
	holdout := folds[fold]
	train := trainIndex(len(data.Rows), holdout)

	spec := core.TrainSpec{
		Classes:  classes,
		Features: make([][]float64, len(train)),
		Labels:   make([]int, len(train)),
	}
	for i, row := range train {
		spec.Features[i] = data.Rows[row]
		spec.Labels[i] = data.Labels[row]
	}
	spec.Weights = balancedWeights(spec.Labels, classes)

	holdFeatures := make([][]float64, len(holdout))
	holdLabels := make([]int, len(holdout))
	for i, row := range holdout {
		holdFeatures[i] = data.Rows[row]
		holdLabels[i] = data.Labels[row]
	}

	booster, err := e.Engine.NewBooster(ctx, h, spec)
	if err != nil {
		return 0, fmt.Errorf("new booster: %w", err)
	}

	best := 0.0
	bestRound := 0
	for round := 1; round <= h.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := booster.Boost(ctx); err != nil {
			return 0, fmt.Errorf("round %d: %w", round, err)
		}
		if e.Metrics != nil {
			e.Metrics.BoostRoundsTotal.Inc()
		}

		holdF1, err := MacroF1FromScores(booster.Predict(holdFeatures), holdLabels, classes)
		if err != nil {
			return 0, fmt.Errorf("round %d: holdout metric: %w", round, err)
		}
		trainF1, err := MacroF1FromScores(booster.Predict(spec.Features), spec.Labels, classes)
		if err != nil {
			return 0, fmt.Errorf("round %d: train metric: %w", round, err)
		}

		if holdF1 > best {
			best, bestRound = holdF1, round
		}
		if round-bestRound >= h.Patience {
			if e.Log != nil {
				e.Log.Debug("early stop",
					zap.Int("fold", fold),
					zap.Int("round", round),
					zap.Int("best_round", bestRound),
					zap.Float64("holdout_f1", best),
					zap.Float64("train_f1", trainF1),
				)
			}
			break
		}
	}

	if e.Metrics != nil {
		e.Metrics.FoldsTrainedTotal.Inc()
	}
	return best, nil
}

// balancedWeights gives each row the weight n/(classes*count(class)), so
// every class carries the same total loss weight.
func balancedWeights(labels []int, classes int) []float64 {
	counts := make([]int, classes)
	for _, label := range labels {
		counts[label]++
	}
	weights := make([]float64, len(labels))
	n := float64(len(labels))
	for i, label := range labels {
		weights[i] = n / (float64(classes) * float64(counts[label]))
	}
	return weights
}

// Objective wraps the evaluator as an optimizer callback over a fixed
// labeled dataset, with score memoization by configuration key.
func (e *Evaluator) Objective(data *dataset.Table) core.Objective {
	return func(ctx context.Context, cfg core.Configuration) (float64, error) {
		start := time.Now()

		h, err := FromConfiguration(cfg)
		if err != nil {
			return 0, err
		}
		h = e.loopControls(h)

		key := cfg.Key()
		if e.Cache != nil {
			if score, ok := e.Cache.Get(key); ok {
				if e.Metrics != nil {
					e.Metrics.CacheHitsTotal.Inc()
				}
				if e.Log != nil {
					logging.LogEvaluation(e.Log, cfg.ID, score, h.Folds, time.Since(start), true)
				}
				return score, nil
			}
			if e.Metrics != nil {
				e.Metrics.CacheMissesTotal.Inc()
			}
		}

		score, err := e.Evaluate(ctx, data, h)
		if err != nil {
			if e.Metrics != nil {
				e.Metrics.ObserveEvaluation("error", time.Since(start))
			}
			return 0, fmt.Errorf("evaluate configuration %s: %w", cfg.ID, err)
		}

		if e.Cache != nil {
			e.Cache.Set(key, score)
		}
		if e.Metrics != nil {
			e.Metrics.ObserveEvaluation("ok", time.Since(start))
		}
		if e.Log != nil {
			logging.LogEvaluation(e.Log, cfg.ID, score, h.Folds, time.Since(start), false)
		}
		return score, nil
	}
}
