package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/oracle-attest/pkg/aggregator"
	"github.com/StrathCole/oracle-attest/pkg/attest"
	"github.com/StrathCole/oracle-attest/pkg/kickoff"
	"github.com/StrathCole/oracle-attest/pkg/logging"
	"github.com/StrathCole/oracle-attest/pkg/metrics"
	"github.com/StrathCole/oracle-attest/pkg/protocol"
)

// waitDelay bounds how long a killed worker may hold its pipes open
const waitDelay = 2 * time.Second

// CommandFactory builds the command for worker index. The command must be
// bound to ctx so cancelling the run kills it.
type CommandFactory func(ctx context.Context, index int, ts kickoff.Timestamp, samples int) *exec.Cmd

// WorkerCommand returns a factory that re-invokes binary as
// `binary [args...] worker --kickoff <ts> --times <n> --id <i>`.
func WorkerCommand(binary string, args ...string) CommandFactory {
	return func(ctx context.Context, index int, ts kickoff.Timestamp, samples int) *exec.Cmd {
		argv := make([]string, 0, len(args)+7)
		argv = append(argv, args...)
		argv = append(argv,
			"worker",
			"--kickoff", strconv.FormatUint(uint64(ts), 10),
			"--times", strconv.Itoa(samples),
			"--id", strconv.Itoa(index),
		)
		return exec.CommandContext(ctx, binary, argv...)
	}
}

// Config holds coordinator configuration
type Config struct {
	Symbol string
	// LeadTime between spawning and kickoff
	LeadTime time.Duration
	// WorkerTimeout bounds each worker; zero waits forever
	WorkerTimeout time.Duration
	Command       CommandFactory
	// Stderr receives worker diagnostics from all workers at once, so it
	// must be safe for concurrent writes. Defaults to os.Stderr.
	Stderr io.Writer
	Logger *logging.Logger
}

// Coordinator runs aggregation rounds over worker processes
type Coordinator struct {
	symbol        string
	leadTime      time.Duration
	workerTimeout time.Duration
	command       CommandFactory
	stderr        io.Writer
	logger        *logging.Logger
	now           func() time.Time
}

// New creates a coordinator
func New(cfg Config) (*Coordinator, error) {
	if cfg.Command == nil {
		return nil, ErrNoCommand
	}
	if cfg.LeadTime < 0 {
		cfg.LeadTime = 0
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNoopLogger()
	}

	return &Coordinator{
		symbol:        cfg.Symbol,
		leadTime:      cfg.LeadTime,
		workerTimeout: cfg.WorkerTimeout,
		command:       cfg.Command,
		stderr:        cfg.Stderr,
		logger:        cfg.Logger,
		now:           time.Now,
	}, nil
}

// RunAggregation spawns workerCount workers sharing one kickoff, verifies
// every attestation and returns the run with its consensus. The first
// failure aborts the run and kills the remaining workers; the returned run
// then carries the per-worker outcomes but no consensus.
func (c *Coordinator) RunAggregation(ctx context.Context, workerCount, samplesPerWorker int) (*AggregationRun, error) {
	if workerCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workerCount)
	}
	if samplesPerWorker < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleCount, samplesPerWorker)
	}

	start := c.now()
	run := &AggregationRun{
		ID:          uuid.NewString(),
		Symbol:      c.symbol,
		WorkerCount: workerCount,
		Samples:     samplesPerWorker,
		Kickoff:     kickoff.Compute(start, c.leadTime),
		Outcomes:    make([]Outcome, workerCount),
	}
	logger := c.logger.With("run", run.ID)

	logger.Info("Starting aggregation",
		"workers", workerCount,
		"samples", samplesPerWorker,
		"kickoff", uint64(run.Kickoff),
	)

	results := make([]WorkerResult, workerCount)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < workerCount; i++ {
		run.Outcomes[i].Worker = i
		g.Go(func() error {
			res, err := c.runWorker(gctx, i, run.Kickoff, samplesPerWorker)
			if err != nil {
				status := OutcomeRejected
				if gctx.Err() != nil && errors.Is(err, ErrWorkerProcess) {
					status = OutcomeCancelled
				}
				run.Outcomes[i].Status = status
				run.Outcomes[i].Reason = err.Error()
				metrics.RecordWorkerResult(string(status), 0)

				if status == OutcomeRejected {
					logger.Error("Worker rejected", "worker", i, "error", err)
				}
				return &AggregationError{Worker: i, Err: err}
			}

			results[i] = *res
			run.Outcomes[i].Status = OutcomeVerified
			run.Outcomes[i].Mean = res.Payload.MeanText
			run.Outcomes[i].Address = res.Address
			metrics.RecordWorkerResult(string(OutcomeVerified), res.Duration)

			logger.Info("Worker verified",
				"worker", i,
				"address", res.Address,
				"mean", res.Payload.MeanText,
				"duration", res.Duration,
			)
			return nil
		})
	}

	err := g.Wait()
	run.Duration = c.now().Sub(start)
	if err != nil {
		metrics.RecordAggregation("failed", run.Duration)
		logger.Error("Aggregation aborted", "error", err)
		return run, err
	}

	run.Verified = results
	values := make([]float64, len(results))
	for i, res := range results {
		values[i] = res.Mean
	}

	consensus, err := aggregator.Aggregate(values)
	if err != nil {
		metrics.RecordAggregation("failed", run.Duration)
		return run, err
	}
	run.Consensus = &consensus

	metrics.RecordAggregation("success", run.Duration)
	metrics.RecordConsensus(c.symbol, consensus)
	logger.Info("Aggregation complete",
		"consensus", protocol.FormatMean(consensus),
		"duration", run.Duration,
	)
	return run, nil
}

// runWorker runs one worker process to completion and verifies its payload
func (c *Coordinator) runWorker(ctx context.Context, index int, ts kickoff.Timestamp, samples int) (*WorkerResult, error) {
	if c.workerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.workerTimeout)
		defer cancel()
	}

	cmd := c.command(ctx, index, ts, samples)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = c.stderr
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = waitDelay
	}

	start := c.now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w: %w", ErrWorkerProcess, ctxErr, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrWorkerProcess, err)
	}

	res, err := Verify(&stdout)
	if err != nil {
		return nil, err
	}
	res.Worker = index
	res.Duration = c.now().Sub(start)
	return res, nil
}

// Verify decodes one payload from r and checks its attestation. Text that
// is not the canonical rendering of the signed value fails as an invalid
// signature.
func Verify(r io.Reader) (*WorkerResult, error) {
	payload, err := protocol.Read(r)
	if err != nil {
		return nil, err
	}

	mean, meanErr := payload.Mean()
	if meanErr != nil && !errors.Is(meanErr, protocol.ErrNonCanonical) {
		return nil, meanErr
	}

	pub, err := attest.DecodePublicKey(payload.PublicKey[:])
	if err != nil {
		return nil, err
	}

	if meanErr != nil {
		return nil, fmt.Errorf("%w: %w", attest.ErrSignatureInvalid, meanErr)
	}
	if err := attest.Verify(pub, mean, payload.Signature); err != nil {
		return nil, err
	}

	return &WorkerResult{
		Mean:    mean,
		Address: attest.AddressOf(pub).Hex(),
		Payload: payload,
	}, nil
}
