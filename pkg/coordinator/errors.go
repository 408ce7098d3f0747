// Package coordinator spawns worker processes, verifies their attested means
// and folds them into a consensus value.
package coordinator

import (
	"errors"
	"fmt"

	"github.com/StrathCole/oracle-attest/pkg/worker"
)

var (
	// ErrWorkerProcess indicates a worker that could not be started, exited
	// non-zero or was killed.
	ErrWorkerProcess = errors.New("worker process failed")
	// ErrInvalidWorkerCount indicates a worker count below one.
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
	// ErrInvalidSampleCount indicates a sample count below one.
	ErrInvalidSampleCount = worker.ErrInvalidSampleCount
	// ErrNoCommand indicates a coordinator without a worker command.
	ErrNoCommand = errors.New("worker command is required")
)

// AggregationError is the error that aborted a run, tagged with the index of
// the worker that caused it.
type AggregationError struct {
	Worker int
	Err    error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.Worker, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
