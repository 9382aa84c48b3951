package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halcyon-ml/hypersweep/core"
	"github.com/halcyon-ml/hypersweep/dataset"
	"github.com/halcyon-ml/hypersweep/evaluate"
	"github.com/halcyon-ml/hypersweep/history"
	"github.com/halcyon-ml/hypersweep/results"
	"github.com/halcyon-ml/hypersweep/space"
)

func (a *app) loadTraining() (*dataset.Table, error) {
	table, err := dataset.LoadFile(a.cfg.TrainPath, dataset.LoadOptions{
		LabelColumn: a.cfg.LabelColumn,
		GroupColumn: a.cfg.GroupColumn,
	})
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}
	labeled := table.Labeled()
	a.log.Info("training data loaded",
		zap.String("path", a.cfg.TrainPath),
		zap.Int("rows", len(labeled.Rows)),
		zap.Int("features", len(labeled.Features)),
		zap.Int("classes", len(labeled.Classes)),
	)
	return labeled, nil
}

func (a *app) runSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	iterations := fs.Int("iterations", 50, "number of configurations to evaluate")
	title := fs.String("title", "boosting sweep", "task title")
	if err := fs.Parse(args); err != nil {
		return err
	}

	searchSpace, err := a.searchSpace()
	if err != nil {
		return err
	}
	opt, err := a.optimizer()
	if err != nil {
		return err
	}
	data, err := a.loadTraining()
	if err != nil {
		return err
	}

	taskID, err := opt.CreateTask(ctx, core.TaskDefinition{
		Title: *title,
		Goal:  core.GoalMaximize,
		Space: searchSpace,
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	fmt.Printf("task %s\n", taskID)

	return a.drive(ctx, opt, taskID, data, *iterations)
}

func (a *app) runResume(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	taskID := fs.String("task", "", "task to continue")
	iterations := fs.Int("iterations", 50, "additional configurations to evaluate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return fmt.Errorf("resume needs -task")
	}
	if a.cfg.Optimizer != "remote" {
		return fmt.Errorf("resume needs the remote optimizer; the local one keeps tasks in memory")
	}

	opt, err := a.optimizer()
	if err != nil {
		return err
	}
	data, err := a.loadTraining()
	if err != nil {
		return err
	}

	prior, err := opt.Results(ctx, *taskID)
	if err != nil {
		return fmt.Errorf("query prior results: %w", err)
	}
	a.log.Info("resuming task",
		zap.String("task_id", *taskID),
		zap.Int("prior_results", len(prior)),
	)

	return a.drive(ctx, opt, *taskID, data, *iterations)
}

// drive runs the optimization loop and mirrors remote histories into the
// local store afterwards, so top and dump work offline.
func (a *app) drive(ctx context.Context, opt core.Optimizer, taskID string, data *dataset.Table, iterations int) error {
	evaluator, err := a.evaluator()
	if err != nil {
		return err
	}
	evaluator.Folds = a.cfg.Folds
	evaluator.Patience = a.cfg.Patience
	evaluator.MaxRounds = a.cfg.MaxRounds

	started := time.Now()
	outcome, err := opt.Run(ctx, taskID, evaluator.Objective(data), iterations)
	if err != nil {
		return fmt.Errorf("run task %s: %w", taskID, err)
	}
	a.metrics.BestScore.Set(outcome.Best.Score)

	if a.cfg.Optimizer == "remote" {
		if err := a.mirror(ctx, opt, taskID); err != nil {
			a.log.Warn("could not mirror remote history", zap.Error(err))
		}
	}

	fmt.Printf("finished %d iterations in %s\n", outcome.Iterations, humanize.RelTime(started, time.Now(), "", ""))
	fmt.Printf("best score %.6f with configuration %s\n", outcome.Best.Score, outcome.BestConfiguration.ID)
	return results.WriteTable(os.Stdout, results.Flatten(a.log,
		[]core.Configuration{outcome.BestConfiguration}, []core.Result{outcome.Best}))
}

func (a *app) mirror(ctx context.Context, opt core.Optimizer, taskID string) error {
	configs, err := opt.Configurations(ctx, taskID)
	if err != nil {
		return err
	}
	res, err := opt.Results(ctx, taskID)
	if err != nil {
		return err
	}
	if err := a.store.RegisterTask(ctx, taskID, "remote task"); err != nil {
		return err
	}
	known, err := a.store.Configurations(ctx, taskID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(known))
	for _, cfg := range known {
		seen[cfg.ID] = true
	}
	for _, cfg := range configs {
		if seen[cfg.ID] {
			continue
		}
		if err := a.store.AppendConfiguration(ctx, taskID, cfg); err != nil {
			return err
		}
	}
	knownRes, err := a.store.Results(ctx, taskID)
	if err != nil {
		return err
	}
	// services are not required to assign result ids, so dedupe on the
	// configuration reference instead
	seenRes := make(map[string]bool, len(knownRes))
	for _, r := range knownRes {
		seenRes[r.ConfigurationID] = true
	}
	for _, r := range res {
		if seenRes[r.ConfigurationID] {
			continue
		}
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if err := a.store.AppendResult(ctx, taskID, r); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) runEvaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := a.loadTraining()
	if err != nil {
		return err
	}
	evaluator, err := a.evaluator()
	if err != nil {
		return err
	}
	evaluator.Folds = a.cfg.Folds
	evaluator.Patience = a.cfg.Patience
	evaluator.MaxRounds = a.cfg.MaxRounds

	cfg := core.Configuration{ID: "default", Params: space.DefaultParams()}
	score, err := evaluator.Objective(data)(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("cross-validated score %.6f\n", score)
	return nil
}

func (a *app) runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	taskID := fs.String("task", "", "task to rank")
	n := fs.Int("n", 10, "rows to show")
	format := fs.String("format", "table", "output format: table|csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return fmt.Errorf("top needs -task")
	}

	configs, err := a.store.Configurations(ctx, *taskID)
	if err != nil {
		return err
	}
	res, err := a.store.Results(ctx, *taskID)
	if err != nil {
		return err
	}

	rows := results.Top(results.Flatten(a.log, configs, res), *n)
	switch *format {
	case "table":
		return results.WriteTable(os.Stdout, rows)
	case "csv":
		return results.WriteCSV(os.Stdout, rows)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	tasks, err := a.store.Tasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks recorded")
		return nil
	}
	for _, task := range tasks {
		fmt.Printf("%s  %-30s  %d configurations, %d results, created %s\n",
			task.TaskID, task.Title, task.Configurations, task.Results,
			humanize.Time(time.Unix(task.CreatedAtUnix, 0)))
	}
	return nil
}

func (a *app) runDump(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	taskID := fs.String("task", "", "task to export")
	outDir := fs.String("out", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return fmt.Errorf("dump needs -task")
	}

	configs, err := a.store.Configurations(ctx, *taskID)
	if err != nil {
		return err
	}
	res, err := a.store.Results(ctx, *taskID)
	if err != nil {
		return err
	}

	if err := writeJSONL(filepath.Join(*outDir, *taskID+".configurations.jsonl"), func(f *os.File) error {
		return history.DumpConfigurations(f, configs)
	}); err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(*outDir, *taskID+".results.jsonl"), func(f *os.File) error {
		return history.DumpResults(f, res)
	}); err != nil {
		return err
	}
	fmt.Printf("exported %d configurations and %d results\n", len(configs), len(res))
	return nil
}

func writeJSONL(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// runSubmit trains on all labeled rows with the default parameters and
// writes predictions for the test set.
func (a *app) runSubmit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	out := fs.String("out", "submission.csv", "submission file path")
	idsPath := fs.String("ids", "", "identifier file; defaults to SWEEP_IDS_PATH")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *idsPath == "" {
		*idsPath = a.cfg.IDsPath
	}

	train, err := a.loadTraining()
	if err != nil {
		return err
	}
	test, err := dataset.LoadFile(a.cfg.TestPath, dataset.LoadOptions{
		LabelColumn: a.cfg.LabelColumn,
		GroupColumn: a.cfg.GroupColumn,
	})
	if err != nil {
		return fmt.Errorf("load test data: %w", err)
	}
	test = test.Unlabeled()

	train, test, err = dataset.AlignColumns(train, test)
	if err != nil {
		return err
	}

	cfg := core.Configuration{ID: "default", Params: space.DefaultParams()}
	h, err := evaluate.FromConfiguration(cfg)
	if err != nil {
		return err
	}

	evaluator, err := a.evaluator()
	if err != nil {
		return err
	}
	predictions, err := predict(ctx, evaluator, train, test, h)
	if err != nil {
		return err
	}

	ids, err := dataset.LoadIDs(*idsPath)
	if err != nil {
		return fmt.Errorf("load identifiers: %w", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dataset.WriteSubmission(f, ids, predictions, train.Classes); err != nil {
		return err
	}
	fmt.Printf("wrote %d predictions to %s\n", len(predictions), *out)
	return nil
}

func predict(ctx context.Context, e *evaluate.Evaluator, train, test *dataset.Table, h core.Hyperparams) ([]int, error) {
	spec := core.TrainSpec{
		Classes:  len(train.Classes),
		Features: train.Rows,
		Labels:   train.Labels,
	}
	booster, err := e.Engine.NewBooster(ctx, h, spec)
	if err != nil {
		return nil, err
	}
	for round := 0; round < h.Patience; round++ {
		if err := booster.Boost(ctx); err != nil {
			return nil, err
		}
	}
	return evaluate.ArgmaxClasses(booster.Predict(test.Rows), len(train.Classes), len(test.Rows))
}
