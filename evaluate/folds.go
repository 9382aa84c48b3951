package evaluate

import (
	"fmt"
	"math/rand"
)

// StratifiedFolds partitions row indexes into k class-proportional folds.
// Within each class the rows are shuffled with the seeded generator and
// dealt round-robin, so each fold's class proportions differ from the whole
// dataset only by integer-partitioning remainder. The assignment is fully
// determined by labels, k and seed.
func StratifiedFolds(labels []int, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("fold count %d must be at least 2", k)
	}
	if len(labels) < k {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", len(labels), k)
	}

	byClass := make(map[int][]int)
	for i, label := range labels {
		if label < 0 {
			return nil, fmt.Errorf("row %d is unlabeled", i)
		}
		byClass[label] = append(byClass[label], i)
	}

	// iterate classes in ascending order for determinism
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	for i := 1; i < len(classes); i++ {
		for j := i; j > 0 && classes[j] < classes[j-1]; j-- {
			classes[j], classes[j-1] = classes[j-1], classes[j]
		}
	}

	rng := rand.New(rand.NewSource(seed))
	folds := make([][]int, k)
	for _, c := range classes {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})
		for i, row := range rows {
			folds[i%k] = append(folds[i%k], row)
		}
	}

	for i, fold := range folds {
		if len(fold) == 0 {
			return nil, fmt.Errorf("fold %d is empty", i)
		}
	}
	return folds, nil
}

// trainIndex returns all row indexes outside the held-out fold.
func trainIndex(total int, holdout []int) []int {
	held := make(map[int]bool, len(holdout))
	for _, i := range holdout {
		held[i] = true
	}
	train := make([]int, 0, total-len(holdout))
	for i := 0; i < total; i++ {
		if !held[i] {
			train = append(train, i)
		}
	}
	return train
}
