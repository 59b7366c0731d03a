package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func busy() error {
	return New(ErrCodeLockBusy, "writer lock held", nil)
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	// Given: a function that succeeds immediately
	calls := 0
	fn := func() error {
		calls++
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: succeeds with single call
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	// Given: a function that fails twice on a busy lock, then succeeds
	calls := 0
	fn := func() error {
		calls++
		if calls < 3 {
			return busy()
		}
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: succeeds after 3 calls
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsNonRetryableErrorImmediately(t *testing.T) {
	// Given: a function failing with a validation error
	calls := 0
	fn := func() error {
		calls++
		return New(ErrCodeDocumentParse, "bad document", nil)
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: no further attempts are made
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, ErrDocumentParse))
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	// Given: a function that always fails with a retryable error
	calls := 0
	fn := func() error {
		calls++
		return busy()
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: fails after max retries + 1 initial attempt
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.True(t, errors.Is(err, ErrLockBusy))
	assert.Contains(t, err.Error(), "failed after 3 retries")
}

func TestRetry_CustomShouldRetry(t *testing.T) {
	// Given: a predicate accepting plain errors
	cfg := fastRetryConfig()
	cfg.ShouldRetry = func(error) bool { return true }
	calls := 0

	// When: the function fails once with a plain error
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	// Then: the predicate drives the retry
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	// Given: a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	fn := func() error {
		calls++
		return busy()
	}

	// When: retrying
	err := Retry(ctx, fastRetryConfig(), fn)

	// Then: returns context error without calling
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetry_CancellationDuringWait(t *testing.T) {
	// Given: a context cancelled while waiting between attempts
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetryConfig()
	cfg.InitialDelay = time.Second

	calls := 0
	fn := func() error {
		calls++
		cancel()
		return busy()
	}

	// When: retrying
	err := Retry(ctx, cfg, fn)

	// Then: stops after the first attempt
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExponentialBackoff(t *testing.T) {
	// Given: timestamps of each attempt
	var times []time.Time
	fn := func() error {
		times = append(times, time.Now())
		return busy()
	}

	cfg := RetryConfig{
		MaxRetries:   3,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	// When: retrying
	_ = Retry(context.Background(), cfg, fn)

	// Then: gaps grow
	require.Len(t, times, 4)
	first := times[1].Sub(times[0])
	third := times[3].Sub(times[2])
	assert.GreaterOrEqual(t, first, 15*time.Millisecond)
	assert.Greater(t, third, first)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	// Given: a function that returns a value after one busy failure
	calls := 0
	fn := func() (uint64, error) {
		calls++
		if calls < 2 {
			return 0, busy()
		}
		return 42, nil
	}

	// When: retrying
	result, err := RetryWithResult(context.Background(), fastRetryConfig(), fn)

	// Then: returns value
	require.NoError(t, err)
	assert.Equal(t, uint64(42), result)
	assert.Equal(t, 2, calls)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Nil(t, cfg.ShouldRetry)
}
