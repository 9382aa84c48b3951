package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/halcyon-ml/hypersweep/booster/stub"
	"github.com/halcyon-ml/hypersweep/config"
	"github.com/halcyon-ml/hypersweep/core"
	"github.com/halcyon-ml/hypersweep/evaluate"
	"github.com/halcyon-ml/hypersweep/history"
	"github.com/halcyon-ml/hypersweep/optimizer/bayes"
	"github.com/halcyon-ml/hypersweep/optimizer/remote"
	"github.com/halcyon-ml/hypersweep/pkg/cache"
	"github.com/halcyon-ml/hypersweep/pkg/limiter"
	"github.com/halcyon-ml/hypersweep/pkg/logging"
	"github.com/halcyon-ml/hypersweep/pkg/metrics"
	"github.com/halcyon-ml/hypersweep/space"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	switch args[0] {
	case "run":
		return app.runSweep(ctx, args[1:])
	case "resume":
		return app.runResume(ctx, args[1:])
	case "evaluate":
		return app.runEvaluate(ctx, args[1:])
	case "top":
		return app.runTop(ctx, args[1:])
	case "history":
		return app.runHistory(ctx, args[1:])
	case "dump":
		return app.runDump(ctx, args[1:])
	case "submit":
		return app.runSubmit(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf(`%s

usage: sweeper <command> [flags]

commands:
  run       start a new sweep
  resume    continue an existing task on the remote service
  evaluate  score a single parameter assignment
  top       show the leaderboard of a finished task
  history   list known tasks
  dump      export a task history as JSON lines
  submit    train on the default parameters and write a submission file`, msg)
}

// app carries the wiring shared by every command.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.SweepMetrics
	store   *history.SQLiteStore
}

func newApp() (*app, error) {
	cfg := config.Load()

	log, err := logging.NewLogger(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewSweepMetrics(registry)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	store, err := history.NewSQLiteStore(cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	return &app{cfg: cfg, log: log, metrics: m, store: store}, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.log.Sync()
}

// searchSpace returns the configured space, either the built-in boosting
// space or one loaded from YAML.
func (a *app) searchSpace() (core.SearchSpace, error) {
	if a.cfg.SpacePath == "" {
		return space.Boosting(), nil
	}
	return space.LoadFile(a.cfg.SpacePath)
}

// optimizer picks the search backend. The local optimizer keeps its tasks
// in memory, so resumable sweeps need the remote service.
func (a *app) optimizer() (core.Optimizer, error) {
	switch a.cfg.Optimizer {
	case "remote":
		if a.cfg.ServiceURL == "" {
			return nil, fmt.Errorf("remote optimizer needs SWEEP_SERVICE_URL")
		}
		return remote.NewClient(remote.Config{
			BaseURL:           a.cfg.ServiceURL,
			Credential:        a.cfg.ServiceCredential,
			Timeout:           a.cfg.ServiceTimeout,
			RequestsPerMinute: a.cfg.RequestsPerMinute,
			Retry:             limiter.DefaultRetryConfig(),
		}, a.log, a.metrics), nil
	case "local":
		return bayes.New(bayes.Options{Seed: a.cfg.Seed}, a.log, a.store), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", a.cfg.Optimizer)
	}
}

// evaluator wires the cross-validation objective over the configured engine.
func (a *app) evaluator() (*evaluate.Evaluator, error) {
	scores, err := cache.NewScoreCache(a.cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &evaluate.Evaluator{
		Engine:  stub.NewEngine(),
		Log:     a.log,
		Metrics: a.metrics,
		Cache:   scores,
		Seed:    a.cfg.Seed,
		Workers: a.cfg.FoldWorkers,
	}, nil
}
