// Package history persists sweep configuration and result histories, so an
// interrupted run can resume against the same task and finished runs stay
// queryable.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halcyon-ml/hypersweep/core"
)

// SQLiteStore implements core.HistoryStore on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if necessary initializes) the store at dbPath.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS configurations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		configuration_id TEXT NOT NULL,
		params TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		result_id TEXT NOT NULL,
		configuration_id TEXT NOT NULL,
		score REAL NOT NULL,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_configurations_task ON configurations(task_id);
	CREATE INDEX IF NOT EXISTS idx_results_task ON results(task_id);
	`

	_, err := s.db.Exec(query)
	return err
}

// RegisterTask records the task in the index. Registering the same task
// twice is a no-op, which is what resume needs.
func (s *SQLiteStore) RegisterTask(ctx context.Context, taskID, title string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tasks (task_id, title, created_at) VALUES (?, ?, ?)`,
		taskID, title, time.Now().Unix(),
	)
	return err
}

// AppendConfiguration appends one proposed configuration to the task history.
func (s *SQLiteStore) AppendConfiguration(ctx context.Context, taskID string, cfg core.Configuration) error {
	params, err := json.Marshal(cfg.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO configurations (task_id, configuration_id, params) VALUES (?, ?, ?)`,
		taskID, cfg.ID, string(params),
	)
	return err
}

// AppendResult appends one evaluation result to the task history.
func (s *SQLiteStore) AppendResult(ctx context.Context, taskID string, res core.Result) error {
	var metadata []byte
	if len(res.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(res.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (task_id, result_id, configuration_id, score, metadata) VALUES (?, ?, ?, ?, ?)`,
		taskID, res.ID, res.ConfigurationID, res.Score, string(metadata),
	)
	return err
}

// Configurations returns the task's configuration history in append order.
func (s *SQLiteStore) Configurations(ctx context.Context, taskID string) ([]core.Configuration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT configuration_id, params FROM configurations WHERE task_id = ? ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []core.Configuration
	for rows.Next() {
		var cfg core.Configuration
		var params string
		if err := rows.Scan(&cfg.ID, &params); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(params), &cfg.Params); err != nil {
			return nil, fmt.Errorf("decode params of %s: %w", cfg.ID, err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// Results returns the task's result history in append order.
func (s *SQLiteStore) Results(ctx context.Context, taskID string) ([]core.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result_id, configuration_id, score, metadata FROM results WHERE task_id = ? ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []core.Result
	for rows.Next() {
		var res core.Result
		var metadata sql.NullString
		if err := rows.Scan(&res.ID, &res.ConfigurationID, &res.Score, &metadata); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &res.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", res.ID, err)
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Tasks returns the task index, newest first, with history counts.
func (s *SQLiteStore) Tasks(ctx context.Context) ([]core.TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.task_id, t.title, t.created_at,
			(SELECT COUNT(*) FROM configurations c WHERE c.task_id = t.task_id),
			(SELECT COUNT(*) FROM results r WHERE r.task_id = t.task_id)
		FROM tasks t ORDER BY t.created_at DESC, t.task_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []core.TaskRecord
	for rows.Next() {
		var rec core.TaskRecord
		if err := rows.Scan(&rec.TaskID, &rec.Title, &rec.CreatedAtUnix, &rec.Configurations, &rec.Results); err != nil {
			return nil, err
		}
		tasks = append(tasks, rec)
	}
	return tasks, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
