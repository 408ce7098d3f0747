// Package kickoff synchronizes the start of sampling across worker processes
// on a shared wall-clock instant.
package kickoff

import (
	"context"
	"time"
)

// DefaultLead is the default delay between spawning workers and kickoff.
// It must exceed worker startup latency.
const DefaultLead = 3 * time.Second

const (
	spinWindow   = 20 * time.Millisecond
	pollInterval = time.Millisecond
)

// Timestamp is a kickoff instant in whole seconds since the Unix epoch
type Timestamp uint64

// Compute returns the kickoff for a run started at now. Sub-second
// remainders are truncated, so the instant may land up to a second early.
func Compute(now time.Time, lead time.Duration) Timestamp {
	at := now.Add(lead).Unix()
	if at < 0 {
		return 0
	}
	return Timestamp(at)
}

// Time converts the kickoff to a time.Time
func (ts Timestamp) Time() time.Time {
	return time.Unix(int64(ts), 0)
}

// Await blocks until the wall clock reaches ts. A kickoff in the past
// returns immediately.
func Await(ctx context.Context, ts Timestamp) error {
	return awaitWith(ctx, ts.Time(), time.Now)
}

func awaitWith(ctx context.Context, deadline time.Time, now func() time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// coarse sleep; timers may fire late, so stop short of the deadline
	if wait := deadline.Sub(now()) - spinWindow; wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
