package bvalue

// Moments accumulates count, mean and the sum of squared deviations (M2) of a
// sample in one pass.
type Moments struct {
	Count int
	Mean  float64
	M2    float64
}

// Update adds one observation.
func (m *Moments) Update(x float64) {
	m.Count++
	delta := x - m.Mean
	m.Mean += delta / float64(m.Count)
	delta2 := x - m.Mean
	m.M2 += delta * delta2
}

// MomentsOf folds a whole sample.
func MomentsOf(sample []float64) Moments {
	var m Moments
	for _, x := range sample {
		m.Update(x)
	}
	return m
}
