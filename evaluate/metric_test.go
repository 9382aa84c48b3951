package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgmaxClasses(t *testing.T) {
	// 2 classes x 3 samples, class-major
	scores := []float64{
		0.9, 0.2, 0.5, // class 0
		0.1, 0.8, 0.5, // class 1
	}
	pred, err := ArgmaxClasses(scores, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, pred, "ties go to the lower class index")
}

func TestArgmaxClassesShapeErrors(t *testing.T) {
	_, err := ArgmaxClasses([]float64{1, 2, 3}, 2, 3)
	assert.ErrorContains(t, err, "want 6")

	_, err = ArgmaxClasses(nil, 0, 3)
	assert.ErrorContains(t, err, "invalid shape")
}

func TestMacroF1(t *testing.T) {
	// class 0: perfect (F1=1), class 1: never predicted (F1=0),
	// class 2: one hit, two false positives (F1=0.5)
	truth := []int{0, 0, 1, 1, 2}
	pred := []int{0, 0, 2, 2, 2}
	assert.InDelta(t, 0.5, MacroF1(pred, truth, 3), 1e-12)
}

func TestMacroF1AbsentClassContributesZero(t *testing.T) {
	truth := []int{0, 1}
	pred := []int{0, 1}
	assert.InDelta(t, 2.0/3.0, MacroF1(pred, truth, 3), 1e-12)
}

func TestMacroF1Degenerate(t *testing.T) {
	assert.Zero(t, MacroF1([]int{0}, []int{0, 1}, 2), "length mismatch")
	assert.Zero(t, MacroF1(nil, nil, 0), "no classes")
}

func TestMacroF1FromScores(t *testing.T) {
	scores := []float64{
		0.9, 0.1, // class 0
		0.1, 0.9, // class 1
	}
	f1, err := MacroF1FromScores(scores, []int{0, 1}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f1, 1e-12)

	_, err = MacroF1FromScores(scores, []int{0}, 2)
	assert.Error(t, err)
}
