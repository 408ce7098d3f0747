package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-attest/pkg/attest"
	"github.com/StrathCole/oracle-attest/pkg/kickoff"
	"github.com/StrathCole/oracle-attest/pkg/protocol"
	"github.com/StrathCole/oracle-attest/pkg/sampler"
)

// MockSampler is a mock implementation of sampler.Sampler
type MockSampler struct {
	mock.Mock
}

func (m *MockSampler) Sample(ctx context.Context) (sampler.Observation, error) {
	args := m.Called(ctx)
	return args.Get(0).(sampler.Observation), args.Error(1)
}

func (m *MockSampler) Name() string { return "mock" }

func (m *MockSampler) Close() error { return nil }

func observation(price string) sampler.Observation {
	return sampler.Observation{
		Symbol:    "BTCUSDT",
		Price:     decimal.RequireFromString(price),
		Timestamp: time.Now(),
		Source:    "mock",
	}
}

func newTestWorker(s sampler.Sampler) *Worker {
	return New(s, Config{Interval: -1})
}

func TestRun_ZeroSamplesRejectedBeforeSampling(t *testing.T) {
	s := new(MockSampler)
	w := newTestWorker(s)

	for _, n := range []int{0, -3} {
		_, err := w.Run(context.Background(), kickoff.Timestamp(1), n)
		assert.ErrorIs(t, err, ErrInvalidSampleCount)
	}
	s.AssertNotCalled(t, "Sample", mock.Anything)
}

func TestRun_ConstantSampler(t *testing.T) {
	s := new(MockSampler)
	s.On("Sample", mock.Anything).Return(observation("100.0"), nil).Times(10)

	result, err := newTestWorker(s).Run(context.Background(), kickoff.Timestamp(1), 10)
	require.NoError(t, err)
	s.AssertExpectations(t)

	assert.Equal(t, 100.0, result.Mean)
	assert.Equal(t, "100.00000000000000000000", result.Payload.MeanText)
	assert.Equal(t, 10, result.Samples)

	pub, err := attest.DecodePublicKey(result.Payload.PublicKey[:])
	require.NoError(t, err)
	assert.NoError(t, attest.Verify(pub, result.Mean, result.Payload.Signature))
}

func TestRun_MeanOfSamples(t *testing.T) {
	s := new(MockSampler)
	s.On("Sample", mock.Anything).Return(observation("63507.10"), nil).Once()
	s.On("Sample", mock.Anything).Return(observation("63507.20"), nil).Once()
	s.On("Sample", mock.Anything).Return(observation("63507.60"), nil).Once()

	result, err := newTestWorker(s).Run(context.Background(), kickoff.Timestamp(1), 3)
	require.NoError(t, err)
	s.AssertExpectations(t)

	assert.Equal(t, 63507.3, result.Mean)

	parsed, err := result.Payload.Mean()
	require.NoError(t, err)
	assert.Equal(t, result.Mean, parsed)
}

func TestRun_SamplerFailure(t *testing.T) {
	s := new(MockSampler)
	s.On("Sample", mock.Anything).Return(observation("100"), nil).Once()
	s.On("Sample", mock.Anything).Return(sampler.Observation{}, errors.New("connection reset")).Once()

	var out bytes.Buffer
	_, err := newTestWorker(s).Execute(context.Background(), &out, kickoff.Timestamp(1), 5)
	assert.ErrorIs(t, err, sampler.ErrSamplerUnavailable)
	assert.Zero(t, out.Len(), "no partial payload")
	s.AssertNumberOfCalls(t, "Sample", 2)
}

func TestRun_SamplerErrorNotDoubleWrapped(t *testing.T) {
	s := new(MockSampler)
	cause := errors.New("timeout")
	s.On("Sample", mock.Anything).Return(sampler.Observation{}, errors.Join(sampler.ErrSamplerUnavailable, cause)).Once()

	_, err := newTestWorker(s).Run(context.Background(), kickoff.Timestamp(1), 1)
	assert.ErrorIs(t, err, sampler.ErrSamplerUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestRun_KickoffCancelled(t *testing.T) {
	s := new(MockSampler)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestWorker(s).Run(ctx, kickoff.Compute(time.Now(), time.Hour), 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	s.AssertNotCalled(t, "Sample", mock.Anything)
}

func TestRun_IntervalBetweenSamples(t *testing.T) {
	s := new(MockSampler)
	s.On("Sample", mock.Anything).Return(observation("1"), nil).Times(3)

	w := New(s, Config{Interval: 30 * time.Millisecond})
	start := time.Now()
	_, err := w.Run(context.Background(), kickoff.Timestamp(1), 3)
	require.NoError(t, err)

	// two pauses, none after the last sample
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestExecute_WritesPayload(t *testing.T) {
	s := new(MockSampler)
	s.On("Sample", mock.Anything).Return(observation("0.00006350764098"), nil)

	var out bytes.Buffer
	result, err := newTestWorker(s).Execute(context.Background(), &out, kickoff.Timestamp(1), 4)
	require.NoError(t, err)

	payload, err := protocol.Read(&out)
	require.NoError(t, err)
	assert.Equal(t, result.Payload, payload)

	mean, err := payload.Mean()
	require.NoError(t, err)
	pub, err := attest.DecodePublicKey(payload.PublicKey[:])
	require.NoError(t, err)
	assert.NoError(t, attest.Verify(pub, mean, payload.Signature))
}

func TestRun_FreshKeyPerInvocation(t *testing.T) {
	s := new(MockSampler)
	s.On("Sample", mock.Anything).Return(observation("5"), nil)
	w := newTestWorker(s)

	a, err := w.Run(context.Background(), kickoff.Timestamp(1), 1)
	require.NoError(t, err)
	b, err := w.Run(context.Background(), kickoff.Timestamp(1), 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.Payload.PublicKey, b.Payload.PublicKey)
	assert.NotEqual(t, a.Address, b.Address)
}
