// Package results joins a task's configuration and result histories into a
// ranked leaderboard.
package results

import (
	"sort"

	"go.uber.org/zap"

	"github.com/halcyon-ml/hypersweep/core"
)

// Row is one leaderboard entry: a configuration together with its score.
type Row struct {
	ConfigurationID string
	Score           float64
	Params          map[string]core.ParamValue
	Metadata        map[string]string
}

// Flatten joins configurations to results by configuration ID and ranks the
// joined rows by score, best first. Ties keep result-history order.
//
// Configurations that were recorded but never evaluated are logged and
// excluded; the optimizer's starting default commonly falls in this bucket.
// Results referencing an unknown configuration are likewise logged and
// excluded.
func Flatten(log *zap.Logger, configs []core.Configuration, results []core.Result) []Row {
	byID := make(map[string]core.Configuration, len(configs))
	for _, cfg := range configs {
		byID[cfg.ID] = cfg
	}

	scored := make(map[string]bool, len(results))
	rows := make([]Row, 0, len(results))
	for _, res := range results {
		cfg, ok := byID[res.ConfigurationID]
		if !ok {
			if log != nil {
				log.Warn("result references unknown configuration",
					zap.String("result_id", res.ID),
					zap.String("configuration_id", res.ConfigurationID),
				)
			}
			continue
		}
		scored[res.ConfigurationID] = true
		rows = append(rows, Row{
			ConfigurationID: res.ConfigurationID,
			Score:           res.Score,
			Params:          cfg.Params,
			Metadata:        res.Metadata,
		})
	}

	if log != nil {
		for _, cfg := range configs {
			if !scored[cfg.ID] {
				log.Warn("configuration has no result, excluding",
					zap.String("configuration_id", cfg.ID),
				)
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
	return rows
}

// Top returns the first n rows, or all of them when fewer exist.
func Top(rows []Row, n int) []Row {
	if n < 0 || n > len(rows) {
		n = len(rows)
	}
	return rows[:n]
}

// ParamColumns returns the sorted union of parameter names across rows,
// giving renderers a stable column order.
func ParamColumns(rows []Row) []string {
	seen := make(map[string]bool)
	var names []string
	for _, row := range rows {
		for name := range row.Params {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
