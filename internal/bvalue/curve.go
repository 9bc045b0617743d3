package bvalue

import (
	"math"
	"sort"
)

// CurvePoint is one point of the cumulative magnitude-frequency curve.
type CurvePoint struct {
	Magnitude float64
	LogN      float64
}

// FrequencyCurve sorts magnitudes in descending order and pairs each with
// log10 of its 1-based rank, i.e. the number of events at least as large.
func FrequencyCurve(magnitudes []float64) []CurvePoint {
	sorted := append([]float64(nil), magnitudes...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	points := make([]CurvePoint, len(sorted))
	for i, m := range sorted {
		points[i] = CurvePoint{Magnitude: m, LogN: math.Log10(float64(i + 1))}
	}
	return points
}

// Predict evaluates log10 N = a - b*m for a fitted estimate.
func Predict(a, b, magnitude float64) float64 {
	return a - b*magnitude
}
