package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SweepMetrics holds all Prometheus metrics for a sweep run.
type SweepMetrics struct {
	// Evaluation metrics
	EvaluationsTotal  *prometheus.CounterVec
	EvaluationSeconds prometheus.Histogram
	FoldsTrainedTotal prometheus.Counter
	BoostRoundsTotal  prometheus.Counter
	BestScore         prometheus.Gauge

	// Optimizer boundary metrics
	OptimizerCallsTotal *prometheus.CounterVec
	OptimizerSeconds    *prometheus.HistogramVec

	// Score cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// NewSweepMetrics creates and registers the sweep metrics with a registry.
// Pass a fresh registry in tests to avoid duplicate registration.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	factory := promauto.With(reg)
	return &SweepMetrics{
		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweep_evaluations_total",
				Help: "Total number of objective evaluations",
			},
			[]string{"status"},
		),
		EvaluationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sweep_evaluation_seconds",
				Help:    "Objective evaluation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		FoldsTrainedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sweep_folds_trained_total",
				Help: "Total number of cross-validation folds trained",
			},
		),
		BoostRoundsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sweep_boost_rounds_total",
				Help: "Total number of boosting rounds across all folds",
			},
		),
		BestScore: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sweep_best_score",
				Help: "Best objective score observed so far",
			},
		),
		OptimizerCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweep_optimizer_calls_total",
				Help: "Total number of optimizer service calls",
			},
			[]string{"operation", "status"},
		),
		OptimizerSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sweep_optimizer_seconds",
				Help:    "Optimizer service call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sweep_score_cache_hits_total",
				Help: "Total number of score cache hits",
			},
		),
		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sweep_score_cache_misses_total",
				Help: "Total number of score cache misses",
			},
		),
	}
}

// ObserveEvaluation records one finished evaluation.
func (m *SweepMetrics) ObserveEvaluation(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(status).Inc()
	m.EvaluationSeconds.Observe(duration.Seconds())
}

// ObserveOptimizerCall records one optimizer service call.
func (m *SweepMetrics) ObserveOptimizerCall(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OptimizerCallsTotal.WithLabelValues(operation, status).Inc()
	m.OptimizerSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}
