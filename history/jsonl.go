package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/halcyon-ml/hypersweep/core"
)

// JSONL dumps are the portable form of a task history: one JSON object per
// line, in append order. They round-trip through ReadConfigurations and
// ReadResults.

// DumpConfigurations writes the configuration history as JSON lines.
func DumpConfigurations(w io.Writer, configs []core.Configuration) error {
	enc := json.NewEncoder(w)
	for _, cfg := range configs {
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode configuration %s: %w", cfg.ID, err)
		}
	}
	return nil
}

// DumpResults writes the result history as JSON lines.
func DumpResults(w io.Writer, results []core.Result) error {
	enc := json.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result %s: %w", res.ID, err)
		}
	}
	return nil
}

// ReadConfigurations reads a configuration history dump.
func ReadConfigurations(r io.Reader) ([]core.Configuration, error) {
	var configs []core.Configuration
	line := 0
	if err := scanLines(r, func(data []byte) error {
		line++
		var cfg core.Configuration
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		configs = append(configs, cfg)
		return nil
	}); err != nil {
		return nil, err
	}
	return configs, nil
}

// ReadResults reads a result history dump.
func ReadResults(r io.Reader) ([]core.Result, error) {
	var results []core.Result
	line := 0
	if err := scanLines(r, func(data []byte) error {
		line++
		var res core.Result
		if err := json.Unmarshal(data, &res); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		results = append(results, res)
		return nil
	}); err != nil {
		return nil, err
	}
	return results, nil
}

func scanLines(r io.Reader, fn func([]byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return scanner.Err()
}
