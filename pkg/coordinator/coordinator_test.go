package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-attest/pkg/attest"
	"github.com/StrathCole/oracle-attest/pkg/kickoff"
	"github.com/StrathCole/oracle-attest/pkg/metrics"
	"github.com/StrathCole/oracle-attest/pkg/protocol"
	"github.com/StrathCole/oracle-attest/pkg/sampler/static"
	"github.com/StrathCole/oracle-attest/pkg/worker"
)

const (
	helperEnv         = "ORACLE_ATTEST_HELPER_WORKER"
	helperTextfileEnv = "ORACLE_ATTEST_HELPER_TEXTFILE"
)

// Helper worker modes
const (
	modeOK           = "ok"
	modeTamperSig    = "tamper-sig"
	modeTamperText   = "tamper-text"
	modeBadKey       = "bad-key"
	modeExit         = "exit"
	modeShort        = "short"
	modeHang         = "hang"
	modeNonCanonical = "non-canonical"
)

// TestHelperWorker is not a real test. It is the worker process spawned by
// the tests below: os.Args after "--" are mode, price, kickoff, samples and
// worker index.
func TestHelperWorker(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		t.Skip("helper process")
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) != 5 {
		fmt.Fprintf(os.Stderr, "helper: want 5 args, got %v\n", args)
		os.Exit(2)
	}
	mode, price := args[0], args[1]
	ts, _ := strconv.ParseUint(args[2], 10, 64)
	samples, _ := strconv.Atoi(args[3])
	index, _ := strconv.Atoi(args[4])

	code := runHelper(mode, price, kickoff.Timestamp(ts), samples)
	if textfile := os.Getenv(helperTextfileEnv); textfile != "" {
		if err := metrics.WriteWorkerTextfile(metrics.WorkerTextfilePath(textfile, index), index); err != nil {
			fmt.Fprintln(os.Stderr, err)
			code = 2
		}
	}
	os.Exit(code)
}

func runHelper(mode, price string, ts kickoff.Timestamp, samples int) int {
	switch mode {
	case modeExit:
		return 3
	case modeHang:
		time.Sleep(time.Minute)
		return 0
	case modeShort:
		_, _ = os.Stdout.Write(make([]byte, protocol.PublicKeyLen+10))
		return 0
	}

	s, err := static.New(map[string]interface{}{"symbol": "BTCUSDT", "price": price})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	w := worker.New(s, worker.Config{Interval: -1})

	if mode == modeOK {
		if _, err := w.Execute(context.Background(), os.Stdout, ts, samples); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	res, err := w.Run(context.Background(), ts, samples)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	p := res.Payload
	switch mode {
	case modeTamperSig:
		p.Signature[10] ^= 0x01
	case modeTamperText:
		p.MeanText = protocol.FormatMean(math.Nextafter(res.Mean, math.Inf(1)))
	case modeNonCanonical:
		p.MeanText += "0"
	case modeBadKey:
		p.PublicKey[0] = 0x05
	}

	if err := protocol.Write(os.Stdout, p); err != nil {
		return 1
	}
	return 0
}

// helperCommand spawns the test binary as a worker; modes maps worker
// index to behavior, defaulting to modeOK. env is appended to the
// worker's environment.
func helperCommand(price string, modes map[int]string, env ...string) CommandFactory {
	return func(ctx context.Context, index int, ts kickoff.Timestamp, samples int) *exec.Cmd {
		mode, ok := modes[index]
		if !ok {
			mode = modeOK
		}
		cmd := exec.CommandContext(ctx, os.Args[0],
			"-test.run=^TestHelperWorker$", "--",
			mode, price, strconv.FormatUint(uint64(ts), 10), strconv.Itoa(samples), strconv.Itoa(index),
		)
		cmd.Env = append(append(os.Environ(), helperEnv+"=1"), env...)
		return cmd
	}
}

func newTestCoordinator(t *testing.T, cmd CommandFactory) *Coordinator {
	t.Helper()
	c, err := New(Config{Symbol: "BTCUSDT", Command: cmd, Stderr: io.Discard})
	require.NoError(t, err)
	return c
}

func TestRunAggregation_ConstantPrice(t *testing.T) {
	c := newTestCoordinator(t, helperCommand("100.0", nil))

	run, err := c.RunAggregation(context.Background(), 5, 10)
	require.NoError(t, err)
	require.NotNil(t, run.Consensus)

	assert.Equal(t, 100.0, *run.Consensus)
	assert.Len(t, run.Verified, 5)
	assert.NotEmpty(t, run.ID)

	for i, res := range run.Verified {
		assert.Equal(t, i, res.Worker)
		assert.Equal(t, "100.00000000000000000000", res.Payload.MeanText)
		assert.Equal(t, OutcomeVerified, run.Outcomes[i].Status)
	}

	line, ok := run.PriceLine()
	require.True(t, ok)
	assert.Equal(t, "Price of BTCUSDT (average of 5 averages): 100.00000000000000000000", line)
}

func TestRunAggregation_EqualMeans(t *testing.T) {
	m := "0.000063507640981234"
	c := newTestCoordinator(t, helperCommand(m, nil))

	run, err := c.RunAggregation(context.Background(), 3, 2)
	require.NoError(t, err)

	f, err := strconv.ParseFloat(m, 64)
	require.NoError(t, err)
	want, _, err := protocol.Canonical(f)
	require.NoError(t, err)
	assert.Equal(t, want, *run.Consensus)
}

func TestRunAggregation_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		wantErr error
	}{
		{"tampered signature", modeTamperSig, attest.ErrSignatureInvalid},
		{"tampered mean text", modeTamperText, attest.ErrSignatureInvalid},
		{"non-canonical text", modeNonCanonical, attest.ErrSignatureInvalid},
		{"malformed key", modeBadKey, attest.ErrKeyDecode},
		{"short payload", modeShort, protocol.ErrPayloadRead},
		{"non-zero exit", modeExit, ErrWorkerProcess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCoordinator(t, helperCommand("100", map[int]string{1: tt.mode}))

			run, err := c.RunAggregation(context.Background(), 3, 2)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var aggErr *AggregationError
			require.True(t, errors.As(err, &aggErr))
			assert.Equal(t, 1, aggErr.Worker)

			require.NotNil(t, run)
			assert.Nil(t, run.Consensus)
			assert.Nil(t, run.Verified)
			assert.Equal(t, OutcomeRejected, run.Outcomes[1].Status)

			_, ok := run.PriceLine()
			assert.False(t, ok)
		})
	}
}

func TestRunAggregation_OneOfFiveExitsNonZero(t *testing.T) {
	// the others wait for a kickoff that comes after the failure
	c, err := New(Config{
		Symbol:   "BTCUSDT",
		LeadTime: 3 * time.Second,
		Command:  helperCommand("100", map[int]string{2: modeExit}),
		Stderr:   io.Discard,
	})
	require.NoError(t, err)

	run, err := c.RunAggregation(context.Background(), 5, 10)
	require.ErrorIs(t, err, ErrWorkerProcess)

	var aggErr *AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.Equal(t, 2, aggErr.Worker)

	require.NotNil(t, run)
	assert.Nil(t, run.Consensus)
	assert.Nil(t, run.Verified)
	require.Len(t, run.Outcomes, 5)

	notVerified := 0
	for i, o := range run.Outcomes {
		if i == 2 {
			assert.Equal(t, OutcomeRejected, o.Status)
			continue
		}
		if o.Status != OutcomeVerified {
			notVerified++
		}
	}
	assert.Equal(t, 4, notVerified)
}

func TestRunAggregation_WorkerMetricsTextfiles(t *testing.T) {
	base := filepath.Join(t.TempDir(), "attest.prom")
	c := newTestCoordinator(t, helperCommand("100", nil, helperTextfileEnv+"="+base))

	_, err := c.RunAggregation(context.Background(), 2, 3)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		data, err := os.ReadFile(metrics.WorkerTextfilePath(base, i))
		require.NoError(t, err)
		text := string(data)

		assert.Contains(t, text, fmt.Sprintf(`attest_samples_total{sampler="static",status="success",worker="%d"} 3`, i))
		assert.Contains(t, text, fmt.Sprintf(`attest_sample_duration_seconds_count{sampler="static",worker="%d"} 3`, i))
		assert.Contains(t, text, fmt.Sprintf(`attest_kickoff_lateness_seconds_count{worker="%d"} 1`, i))
	}
}

func TestRunAggregation_FailFastKillsOthers(t *testing.T) {
	c := newTestCoordinator(t, helperCommand("100", map[int]string{0: modeHang, 1: modeExit, 2: modeHang}))

	start := time.Now()
	run, err := c.RunAggregation(context.Background(), 3, 1)
	assert.ErrorIs(t, err, ErrWorkerProcess)
	assert.Less(t, time.Since(start), 20*time.Second)

	var aggErr *AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.Equal(t, 1, aggErr.Worker)
	assert.Equal(t, OutcomeCancelled, run.Outcomes[0].Status)
	assert.Equal(t, OutcomeCancelled, run.Outcomes[2].Status)
}

func TestRunAggregation_WorkerTimeout(t *testing.T) {
	c, err := New(Config{
		Symbol:        "BTCUSDT",
		WorkerTimeout: 200 * time.Millisecond,
		Command:       helperCommand("100", map[int]string{0: modeHang}),
		Stderr:        io.Discard,
	})
	require.NoError(t, err)

	_, err = c.RunAggregation(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrWorkerProcess)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunAggregation_InvalidCounts(t *testing.T) {
	spawned := false
	c := newTestCoordinator(t, func(ctx context.Context, index int, ts kickoff.Timestamp, samples int) *exec.Cmd {
		spawned = true
		return exec.CommandContext(ctx, "false")
	})

	_, err := c.RunAggregation(context.Background(), 0, 10)
	assert.ErrorIs(t, err, ErrInvalidWorkerCount)

	_, err = c.RunAggregation(context.Background(), 5, 0)
	assert.ErrorIs(t, err, ErrInvalidSampleCount)
	assert.ErrorIs(t, err, worker.ErrInvalidSampleCount)

	assert.False(t, spawned)
}

func TestNew_RequiresCommand(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestWorkerCommand(t *testing.T) {
	factory := WorkerCommand("/usr/bin/oracle-attest", "--config", "/etc/oracle.yaml")
	cmd := factory(context.Background(), 2, kickoff.Timestamp(1700000003), 10)

	assert.Equal(t, []string{
		"/usr/bin/oracle-attest",
		"--config", "/etc/oracle.yaml",
		"worker", "--kickoff", "1700000003", "--times", "10", "--id", "2",
	}, cmd.Args)
}

func TestVerify_InProcess(t *testing.T) {
	signer, err := attest.NewSigner()
	require.NoError(t, err)
	value, text, err := protocol.Canonical(42.125)
	require.NoError(t, err)
	sig, err := signer.SignValue(value)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, protocol.Write(&buf, protocol.Payload{
		PublicKey: signer.PublicKey(),
		Signature: sig,
		MeanText:  text,
	}))

	res, err := Verify(&buf)
	require.NoError(t, err)
	assert.Equal(t, 42.125, res.Mean)
	assert.Equal(t, signer.Address().Hex(), res.Address)
}

func TestVerify_UnparsableText(t *testing.T) {
	signer, err := attest.NewSigner()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, protocol.Write(&buf, protocol.Payload{
		PublicKey: signer.PublicKey(),
		MeanText:  "one hundred",
	}))

	_, err = Verify(&buf)
	assert.ErrorIs(t, err, protocol.ErrParse)
}
