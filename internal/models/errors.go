package models

import "errors"

var (
	// ErrInputValidation marks missing columns, unparsable fields, empty catalogs and
	// invalid analysis parameters. It aborts a run.
	ErrInputValidation = errors.New("input validation failed")

	// ErrInsufficientVariance is returned by the maximum likelihood estimator when the
	// sample mean equals the sample minimum.
	ErrInsufficientVariance = errors.New("insufficient magnitude variance")

	// ErrDegenerateFit is returned by the least-squares estimator when fewer than two
	// bins are populated or the regression denominator is zero.
	ErrDegenerateFit = errors.New("degenerate regression fit")

	// ErrEmptyResult means no window met the minimum event count.
	ErrEmptyResult = errors.New("no window has the minimum number of events")

	// ErrCancelled is returned when the caller aborts an analysis between windows.
	ErrCancelled = errors.New("analysis cancelled")
)
