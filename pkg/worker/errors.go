// Package worker samples a price feed after a shared kickoff, averages the
// samples and emits a signed attestation of the mean.
package worker

import "errors"

var (
	// ErrInvalidSampleCount indicates a sample count below one.
	ErrInvalidSampleCount = errors.New("sample count must be at least 1")
)
