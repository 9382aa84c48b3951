package evaluate

import "fmt"

// ArgmaxClasses turns a flat class-major score buffer into one predicted
// class per sample. The buffer is laid out as classes rows of samples
// columns: scores[c*samples+i] is the score of class c for sample i.
func ArgmaxClasses(scores []float64, classes, samples int) ([]int, error) {
	if classes <= 0 || samples < 0 {
		return nil, fmt.Errorf("invalid shape %dx%d", classes, samples)
	}
	if len(scores) != classes*samples {
		return nil, fmt.Errorf("score buffer has %d entries, want %d (%d classes x %d samples)",
			len(scores), classes*samples, classes, samples)
	}

	pred := make([]int, samples)
	for i := 0; i < samples; i++ {
		best, bestScore := 0, scores[i]
		for c := 1; c < classes; c++ {
			if s := scores[c*samples+i]; s > bestScore {
				best, bestScore = c, s
			}
		}
		pred[i] = best
	}
	return pred, nil
}

// MacroF1 computes the unweighted mean of per-class F1 scores. Every class
// in [0, classes) contributes equally regardless of support; a class with
// undefined precision or recall contributes 0.
func MacroF1(pred, truth []int, classes int) float64 {
	if classes <= 0 || len(pred) != len(truth) {
		return 0
	}

	tp := make([]int, classes)
	fp := make([]int, classes)
	fn := make([]int, classes)
	for i := range pred {
		p, t := pred[i], truth[i]
		if p == t {
			tp[p]++
			continue
		}
		if p >= 0 && p < classes {
			fp[p]++
		}
		if t >= 0 && t < classes {
			fn[t]++
		}
	}

	var sum float64
	for c := 0; c < classes; c++ {
		denom := float64(2*tp[c] + fp[c] + fn[c])
		if denom > 0 {
			sum += 2 * float64(tp[c]) / denom
		}
	}
	return sum / float64(classes)
}

// MacroF1FromScores combines the reshape-argmax step with the macro F1.
func MacroF1FromScores(scores []float64, truth []int, classes int) (float64, error) {
	pred, err := ArgmaxClasses(scores, classes, len(truth))
	if err != nil {
		return 0, err
	}
	return MacroF1(pred, truth, classes), nil
}
