package coordinator

import (
	"fmt"
	"time"

	"github.com/StrathCole/oracle-attest/pkg/kickoff"
	"github.com/StrathCole/oracle-attest/pkg/protocol"
)

// OutcomeStatus tags a worker's result in a run report
type OutcomeStatus string

const (
	// OutcomeVerified means the worker's attestation checked out
	OutcomeVerified OutcomeStatus = "verified"
	// OutcomeRejected means the worker failed or its attestation was invalid
	OutcomeRejected OutcomeStatus = "rejected"
	// OutcomeCancelled means the worker was killed after another one failed
	OutcomeCancelled OutcomeStatus = "cancelled"
	// OutcomePending means the worker never reported
	OutcomePending OutcomeStatus = ""
)

// WorkerResult is a verified worker attestation
type WorkerResult struct {
	Worker   int
	Mean     float64
	Address  string
	Payload  protocol.Payload
	Duration time.Duration
}

// Outcome is the per-worker entry of a run report. Reporting only; a run
// has a consensus only when every outcome is verified.
type Outcome struct {
	Worker  int           `json:"worker"`
	Status  OutcomeStatus `json:"status"`
	Mean    string        `json:"mean,omitempty"`
	Address string        `json:"address,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

// AggregationRun describes one coordinator run
type AggregationRun struct {
	ID          string
	Symbol      string
	WorkerCount int
	Samples     int
	Kickoff     kickoff.Timestamp
	Verified    []WorkerResult
	Outcomes    []Outcome
	Consensus   *float64
	Duration    time.Duration
}

// PriceLine renders the consensus line printed at the end of a run
func (r *AggregationRun) PriceLine() (string, bool) {
	if r.Consensus == nil {
		return "", false
	}
	return fmt.Sprintf("Price of %s (average of %d averages): %.20f", r.Symbol, r.WorkerCount, *r.Consensus), true
}
