// Package aggregator folds verified worker means into a consensus value.
package aggregator

import "errors"

var (
	// ErrNoValues indicates that nothing was provided to aggregate.
	ErrNoValues = errors.New("no values provided")
	// ErrNonFinite indicates a NaN or infinite input.
	ErrNonFinite = errors.New("non-finite value")
)
