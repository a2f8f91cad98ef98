package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, keyvals ...interface{}) {}
func (noopLogger) Info(msg string, keyvals ...interface{})  {}
func (noopLogger) Warn(msg string, keyvals ...interface{})  {}
func (noopLogger) Error(msg string, keyvals ...interface{}) {}

var errFlaky = errors.New("flaky")

func testConfig(maxAttempts int, retryable ...error) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     maxAttempts,
		BackoffStrategy: &ConstantBackoff{Interval: time.Millisecond},
		Logger:          noopLogger{},
		RetryableErrors: retryable,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, testConfig(5, errFlaky))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustedBudgetIsMarked(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return errFlaky
	}, testConfig(3, errFlaky))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 3, calls)
}

func TestRetry_NonRetryableErrorReturnedAsIs(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return fatal
	}, testConfig(3, errFlaky))

	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 1, calls)
}

func TestRetry_NonRetryableOnFinalAttemptNotMasked(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return fatal
	}, testConfig(3, errFlaky))

	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted,
		"a terminal failure on the last attempt must not look like an exhausted budget")
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, func() error {
		calls++
		return errFlaky
	}, testConfig(3, errFlaky))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetry_AllErrorsRetryableByDefault(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return errors.New("anything")
	}, testConfig(2))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 2, calls)
}

func TestExponentialBackoff(t *testing.T) {
	b := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}

	assert.Equal(t, 100*time.Millisecond, b.NextBackoff(1))
	assert.Equal(t, 200*time.Millisecond, b.NextBackoff(2))
	assert.Equal(t, 400*time.Millisecond, b.NextBackoff(3))
	assert.Equal(t, time.Second, b.NextBackoff(10), "capped at MaxInterval")
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	b := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Minute,
		Multiplier:      2.0,
		JitterFactor:    0.5,
	}

	for i := 0; i < 50; i++ {
		d := b.NextBackoff(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
