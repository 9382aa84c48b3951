// Package testkit generates deterministic synthetic classification data
// for tests.
package testkit

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/halcyon-ml/hypersweep/dataset"
)

// BlobSpec describes a synthetic dataset of Gaussian blobs, one blob per
// class. The same spec and seed always produce the same table.
type BlobSpec struct {
	Classes    int
	PerClass   int
	Dims       int
	Separation float64
	Noise      float64
	Seed       int64
}

// DefaultBlobs returns a spec that is cheap to train on yet separable
// enough that a weak learner tells the classes apart.
func DefaultBlobs() BlobSpec {
	return BlobSpec{
		Classes:    3,
		PerClass:   30,
		Dims:       4,
		Separation: 5.0,
		Noise:      0.5,
		Seed:       42,
	}
}

// Blobs materializes a labeled table. Class c is centered at
// Separation*c along every axis, rows are grouped into per-class pairs via
// the group key so grouping-aware code has something to chew on.
func Blobs(spec BlobSpec) *dataset.Table {
	rng := rand.New(rand.NewSource(spec.Seed))

	features := make([]string, spec.Dims)
	for j := range features {
		features[j] = fmt.Sprintf("f%d", j)
	}

	total := spec.Classes * spec.PerClass
	rows := make([][]float64, 0, total)
	labels := make([]int, 0, total)
	groups := make([]string, 0, total)
	classes := make([]string, spec.Classes)
	for c := 0; c < spec.Classes; c++ {
		classes[c] = fmt.Sprintf("class_%d", c)
		center := spec.Separation * float64(c)
		for i := 0; i < spec.PerClass; i++ {
			row := make([]float64, spec.Dims)
			for j := range row {
				row[j] = center + rng.NormFloat64()*spec.Noise
			}
			rows = append(rows, row)
			labels = append(labels, c)
			groups = append(groups, fmt.Sprintf("g%d_%d", c, i/2))
		}
	}

	return &dataset.Table{
		Features: features,
		Rows:     rows,
		Labels:   labels,
		Groups:   groups,
		Classes:  classes,
	}
}

// BlobsCSV renders the blobs as CSV text in the layout dataset.Load expects,
// for tests that exercise the loading path itself.
func BlobsCSV(spec BlobSpec, labelColumn, groupColumn string) string {
	t := Blobs(spec)

	var b strings.Builder
	b.WriteString(strings.Join(t.Features, ","))
	b.WriteString("," + labelColumn + "," + groupColumn + "\n")
	for i, row := range t.Rows {
		for _, v := range row {
			fmt.Fprintf(&b, "%g,", v)
		}
		label := ""
		if t.Labels[i] != dataset.Unlabeled {
			label = t.Classes[t.Labels[i]]
		}
		b.WriteString(label + "," + t.Groups[i] + "\n")
	}
	return b.String()
}
