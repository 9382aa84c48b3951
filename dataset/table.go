// Package dataset loads pre-engineered tabular feature sets. Feature columns
// are numeric; the label column may be empty for unlabeled (test) rows.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Unlabeled marks a row without a label.
const Unlabeled = -1

// LoadOptions names the non-feature columns of the file.
type LoadOptions struct {
	LabelColumn string
	GroupColumn string
}

// Table is an in-memory feature table. Rows, Labels and Groups are parallel
// slices; Labels holds class indexes into Classes, or Unlabeled.
type Table struct {
	Features []string
	Rows     [][]float64
	Labels   []int
	Groups   []string
	Classes  []string
}

// LoadFile reads a CSV feature table from disk.
func LoadFile(path string, opts LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Load reads a CSV feature table. The first record is the header. Values
// that cannot coerce to float64 in a feature column produce an error naming
// the offending column and row.
func Load(r io.Reader, opts LoadOptions) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	headerLine, _ := reader.FieldPos(0)

	labelIdx, groupIdx := -1, -1
	featureIdx := make([]int, 0, len(header))
	features := make([]string, 0, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		switch {
		case opts.LabelColumn != "" && name == opts.LabelColumn:
			labelIdx = i
		case opts.GroupColumn != "" && name == opts.GroupColumn:
			groupIdx = i
		default:
			featureIdx = append(featureIdx, i)
			features = append(features, name)
		}
	}
	if opts.LabelColumn != "" && labelIdx < 0 {
		return nil, fmt.Errorf("label column %q not found", opts.LabelColumn)
	}
	if opts.GroupColumn != "" && groupIdx < 0 {
		return nil, fmt.Errorf("group column %q not found", opts.GroupColumn)
	}

	t := &Table{Features: features}
	rawLabels := make([]string, 0, 1024)
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowNum, err)
		}
		if blankRecord(record) {
			continue
		}
		// Blank lines in the file shift record counts, so errors report
		// the row by its line position below the header instead.
		line, _ := reader.FieldPos(0)
		fileRow := line - headerLine
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d: got %d fields, header has %d", fileRow, len(record), len(header))
		}

		row := make([]float64, len(featureIdx))
		for j, idx := range featureIdx {
			cell := strings.TrimSpace(record[idx])
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: cannot coerce %q to numeric: %w", features[j], fileRow, cell, err)
			}
			row[j] = value
		}
		t.Rows = append(t.Rows, row)

		if labelIdx >= 0 {
			rawLabels = append(rawLabels, strings.TrimSpace(record[labelIdx]))
		}
		if groupIdx >= 0 {
			t.Groups = append(t.Groups, strings.TrimSpace(record[groupIdx]))
		}
	}

	if labelIdx >= 0 {
		t.Labels, t.Classes = indexLabels(rawLabels)
	}
	return t, nil
}

// indexLabels maps raw label strings to dense class indexes. Class order is
// sorted so fold assignment is stable across loads.
func indexLabels(raw []string) ([]int, []string) {
	classSet := make(map[string]bool)
	for _, label := range raw {
		if !isNull(label) {
			classSet[label] = true
		}
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	labels := make([]int, len(raw))
	for i, label := range raw {
		if isNull(label) {
			labels[i] = Unlabeled
		} else {
			labels[i] = index[label]
		}
	}
	return labels, classes
}

func isNull(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "na", "nan":
		return true
	}
	return false
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Labeled returns the subset of rows carrying a label (the train view).
func (t *Table) Labeled() *Table {
	return t.filter(func(label int) bool { return label != Unlabeled })
}

// Unlabeled returns the subset of rows without a label (the test view).
func (t *Table) Unlabeled() *Table {
	return t.filter(func(label int) bool { return label == Unlabeled })
}

func (t *Table) filter(keep func(label int) bool) *Table {
	out := &Table{Features: t.Features, Classes: t.Classes}
	for i, row := range t.Rows {
		label := Unlabeled
		if i < len(t.Labels) {
			label = t.Labels[i]
		}
		if !keep(label) {
			continue
		}
		out.Rows = append(out.Rows, row)
		out.Labels = append(out.Labels, label)
		if i < len(t.Groups) {
			out.Groups = append(out.Groups, t.Groups[i])
		}
	}
	return out
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(columns []string) (*Table, error) {
	idx := make([]int, 0, len(columns))
	for _, name := range columns {
		found := -1
		for i, have := range t.Features {
			if have == name {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
		idx = append(idx, found)
	}

	out := &Table{
		Features: append([]string(nil), columns...),
		Labels:   t.Labels,
		Groups:   t.Groups,
		Classes:  t.Classes,
	}
	for _, row := range t.Rows {
		projected := make([]float64, len(idx))
		for j, i := range idx {
			projected[j] = row[i]
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}

// AlignColumns projects both tables onto the intersection of their feature
// columns, preserving the first table's column order.
func AlignColumns(train, test *Table) (*Table, *Table, error) {
	have := make(map[string]bool, len(test.Features))
	for _, name := range test.Features {
		have[name] = true
	}
	shared := make([]string, 0, len(train.Features))
	for _, name := range train.Features {
		if have[name] {
			shared = append(shared, name)
		}
	}
	if len(shared) == 0 {
		return nil, nil, fmt.Errorf("no shared feature columns between tables")
	}

	alignedTrain, err := train.Select(shared)
	if err != nil {
		return nil, nil, err
	}
	alignedTest, err := test.Select(shared)
	if err != nil {
		return nil, nil, err
	}
	return alignedTrain, alignedTest, nil
}
