package bayes

import "math"

// surrogate is a kernel-smoothed regression model over normalized parameter
// vectors. predict returns a similarity-weighted mean of the observed scores
// and a variance that shrinks as observations accumulate near the query.
// Callers hold the optimizer lock; the surrogate itself is not synchronized.
type surrogate struct {
	x     [][]float64
	y     []float64
	sigma float64
}

func newSurrogate(sigma float64) *surrogate {
	return &surrogate{sigma: sigma}
}

// kernel is the radial basis function over two equal-length vectors.
func (s *surrogate) kernel(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Exp(-sum / (2 * s.sigma * s.sigma))
}

func (s *surrogate) predict(x []float64) (mean, variance float64) {
	if len(s.x) == 0 {
		return 0, 1
	}

	k := make([]float64, len(s.x))
	var weight float64
	for i := range s.x {
		k[i] = s.kernel(x, s.x[i])
		weight += k[i]
	}
	if weight == 0 {
		return 0, 1
	}

	for i := range s.x {
		mean += k[i] * s.y[i]
	}
	mean /= weight

	variance = 1.0
	n := float64(len(s.x))
	for i := range k {
		for j := range k {
			variance -= k[i] * k[j] / n
		}
	}
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

func (s *surrogate) update(x []float64, y float64) {
	cp := make([]float64, len(x))
	copy(cp, x)
	s.x = append(s.x, cp)
	s.y = append(s.y, y)
}
