// Package bvalue estimates the Gutenberg-Richter b-value of a magnitude sample.
package bvalue

import (
	"fmt"
	"math"

	"github.com/rewired-gh/quakestat/internal/models"
)

const (
	DefaultBinSize   = 0.2
	DefaultPrecision = 3

	// stdErrFactor is the constant of the Shi and Bolt (1982) standard error.
	stdErrFactor = 2.30
)

// MaxLikelihood is the Aki (1965) / Utsu maximum likelihood estimator:
// b = log10(e) / (mean - min), a = log10(N) + b*min.
func MaxLikelihood(magnitudes []float64) (models.Estimate, error) {
	n := len(magnitudes)
	if n == 0 {
		return models.Estimate{}, fmt.Errorf("%w: empty magnitude sample", models.ErrInputValidation)
	}

	moments := MomentsOf(magnitudes)
	minMag := magnitudes[0]
	for _, m := range magnitudes[1:] {
		minMag = math.Min(minMag, m)
	}

	spread := moments.Mean - minMag
	if n < 2 || spread <= 0 {
		return models.Estimate{}, fmt.Errorf("%w: mean equals minimum (%.3f) over %d events",
			models.ErrInsufficientVariance, minMag, n)
	}

	b := math.Log10E / spread
	a := math.Log10(float64(n)) + b*minMag
	variance := moments.M2 / float64(n*(n-1))
	stdErr := stdErrFactor * math.Sqrt(variance) * b * b

	return models.Estimate{B: b, A: a, StdErr: stdErr}, nil
}

// LeastSquares fits log10 of the cumulative count against magnitude bins.
// Magnitudes and binSize are scaled by 10^precision and rounded to integers so
// bin edges and comparisons are exact; b is scaled back before returning.
func LeastSquares(magnitudes []float64, binSize float64, precision int) (models.Estimate, error) {
	if len(magnitudes) == 0 {
		return models.Estimate{}, fmt.Errorf("%w: empty magnitude sample", models.ErrInputValidation)
	}
	if precision < 0 || precision > 9 {
		return models.Estimate{}, fmt.Errorf("%w: precision %d must be between 0 and 9", models.ErrInputValidation, precision)
	}

	scale := math.Pow10(precision)
	step := int64(math.Round(binSize * scale))
	if step <= 0 {
		return models.Estimate{}, fmt.Errorf("%w: bin size %g is below precision %d",
			models.ErrInputValidation, binSize, precision)
	}

	scaled := make([]int64, len(magnitudes))
	for i, m := range magnitudes {
		scaled[i] = int64(math.Round(m * scale))
	}
	lo, hi := scaled[0], scaled[0]
	for _, m := range scaled[1:] {
		lo = min(lo, m)
		hi = max(hi, m)
	}

	edges := BinEdges(lo, hi, step)
	if len(edges) < 2 {
		return models.Estimate{}, fmt.Errorf("%w: %d populated bin(s)", models.ErrDegenerateFit, len(edges))
	}

	xs := make([]float64, len(edges))
	ys := make([]float64, len(edges))
	var sx, sy float64
	for i, edge := range edges {
		count := 0
		for _, m := range scaled {
			if m >= edge {
				count++
			}
		}
		xs[i] = float64(edge)
		if count > 0 {
			ys[i] = math.Log10(float64(count))
		}
		sx += xs[i]
		sy += ys[i]
	}

	bins := float64(len(edges))
	xMean, yMean := sx/bins, sy/bins
	var numerator, denominator float64
	for i := range xs {
		numerator += (xs[i] - xMean) * (ys[i] - yMean)
		denominator += (xs[i] - xMean) * (xs[i] - xMean)
	}
	if denominator == 0 {
		return models.Estimate{}, fmt.Errorf("%w: zero magnitude spread", models.ErrDegenerateFit)
	}

	// b is the negated slope so that normal seismicity gives b > 0.
	b := -numerator / denominator
	a := yMean + xMean*b
	return models.Estimate{B: b * scale, A: a}, nil
}

// BinEdges returns lo, lo+step, ... up to and including hi. It is built as the
// half-open range [lo, hi+step) with the last edge dropped when it overshoots hi.
func BinEdges(lo, hi, step int64) []int64 {
	if step <= 0 || hi < lo {
		return nil
	}
	var edges []int64
	for edge := lo; edge < hi+step; edge += step {
		edges = append(edges, edge)
	}
	if len(edges) > 0 && edges[len(edges)-1] > hi {
		edges = edges[:len(edges)-1]
	}
	return edges
}
