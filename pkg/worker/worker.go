package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-attest/pkg/aggregator"
	"github.com/StrathCole/oracle-attest/pkg/attest"
	"github.com/StrathCole/oracle-attest/pkg/kickoff"
	"github.com/StrathCole/oracle-attest/pkg/logging"
	"github.com/StrathCole/oracle-attest/pkg/metrics"
	"github.com/StrathCole/oracle-attest/pkg/protocol"
	"github.com/StrathCole/oracle-attest/pkg/sampler"
)

// Config holds worker configuration
type Config struct {
	// Interval between samples; zero or negative means no pause
	Interval time.Duration
	Logger   *logging.Logger
}

// Result is a signed mean ready to be emitted
type Result struct {
	Mean    float64
	Samples int
	Address common.Address
	Payload protocol.Payload
}

// Worker runs one attested sampling round
type Worker struct {
	sampler  sampler.Sampler
	interval time.Duration
	logger   *logging.Logger
}

// New creates a worker over s
func New(s sampler.Sampler, cfg Config) *Worker {
	interval := cfg.Interval
	if interval < 0 {
		interval = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Worker{
		sampler:  s,
		interval: interval,
		logger:   logger,
	}
}

// Run waits for the kickoff, takes sampleCount samples, and returns the
// mean signed with a fresh ephemeral key.
func (w *Worker) Run(ctx context.Context, ts kickoff.Timestamp, sampleCount int) (*Result, error) {
	if sampleCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleCount, sampleCount)
	}

	if err := kickoff.Await(ctx, ts); err != nil {
		return nil, fmt.Errorf("await kickoff: %w", err)
	}
	lateness := time.Since(ts.Time())
	metrics.RecordKickoffLateness(lateness)
	w.logger.Debug("Kickoff reached", "kickoff", uint64(ts), "lateness", lateness)

	prices, err := w.collect(ctx, sampleCount)
	if err != nil {
		return nil, err
	}

	mean, err := aggregator.Mean(prices)
	if err != nil {
		return nil, err
	}
	f, _ := mean.Float64()

	value, text, err := protocol.Canonical(f)
	if err != nil {
		return nil, fmt.Errorf("mean %s: %w", mean, err)
	}

	signer, err := attest.NewSigner()
	if err != nil {
		return nil, err
	}
	defer signer.Destroy()

	sig, err := signer.SignValue(value)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Mean:    value,
		Samples: sampleCount,
		Address: signer.Address(),
		Payload: protocol.Payload{
			PublicKey: signer.PublicKey(),
			Signature: sig,
			MeanText:  text,
		},
	}

	w.logger.Info("Mean attested",
		"address", result.Address.Hex(),
		"samples", sampleCount,
		"mean", text,
	)
	return result, nil
}

// Execute runs a round and writes the payload to out in a single write.
// Nothing is written when the round fails.
func (w *Worker) Execute(ctx context.Context, out io.Writer, ts kickoff.Timestamp, sampleCount int) (*Result, error) {
	result, err := w.Run(ctx, ts, sampleCount)
	if err != nil {
		return nil, err
	}
	if err := protocol.Write(out, result.Payload); err != nil {
		return nil, err
	}
	return result, nil
}

// collect takes exactly n samples with the configured pause between them.
// The first failure ends the round.
func (w *Worker) collect(ctx context.Context, n int) ([]decimal.Decimal, error) {
	prices := make([]decimal.Decimal, 0, n)

	for i := 0; i < n; i++ {
		if i > 0 && w.interval > 0 {
			timer := time.NewTimer(w.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		start := time.Now()
		obs, err := w.sampler.Sample(ctx)
		metrics.RecordSample(w.sampler.Name(), err == nil, time.Since(start))
		if err != nil {
			w.logger.Error("Sampling failed", "sample", i+1, "of", n, "error", err)
			if !errors.Is(err, sampler.ErrSamplerUnavailable) {
				err = fmt.Errorf("%w: %w", sampler.ErrSamplerUnavailable, err)
			}
			return nil, err
		}

		w.logger.Debug("Sample taken", "sample", i+1, "of", n, "price", obs.Price.String())
		prices = append(prices, obs.Price)
	}

	return prices, nil
}
