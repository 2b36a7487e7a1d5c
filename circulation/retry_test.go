package circulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/libradesk/circulation-go/circulation"
	"github.com/libradesk/circulation-go/testutil/helper"
)

func Test_Retry_When_FirstAttemptSucceeds(t *testing.T) {
	// arrange
	attempts := 0

	// act
	err := circulation.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		return nil
	})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func Test_Retry_When_ContentionResolvesOnSecondAttempt(t *testing.T) {
	// arrange
	attempts := 0

	// act
	err := circulation.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts == 1 {
			return circulation.ErrContention
		}
		return nil
	}, circulation.WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func Test_Retry_When_ContentionPersists_ReturnsContention(t *testing.T) {
	// arrange
	attempts := 0

	// act
	err := circulation.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		return circulation.ErrContention
	}, circulation.WithMaxAttempts(3), circulation.WithBaseDelay(time.Millisecond))

	// assert
	assert.ErrorIs(t, err, circulation.ErrContention)
	assert.Equal(t, 3, attempts)
}

func Test_Retry_When_PermanentError_FailsFast(t *testing.T) {
	// arrange
	attempts := 0

	// act
	err := circulation.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		return circulation.ErrNotFound
	})

	// assert
	assert.ErrorIs(t, err, circulation.ErrNotFound)
	assert.Equal(t, 1, attempts)
}

func Test_Retry_When_ContextCancelledDuringBackoff(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())

	// act
	err := circulation.RetryWithExponentialBackoff(ctx, func(_ context.Context) error {
		cancel()
		return circulation.ErrContention
	}, circulation.WithBaseDelay(time.Second))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Retry_When_InvalidOptions(t *testing.T) {
	noop := func(_ context.Context) error { return nil }

	err := circulation.RetryWithExponentialBackoff(context.Background(), noop, circulation.WithMaxAttempts(0))
	assert.ErrorIs(t, err, circulation.ErrInvalidMaxAttempts)

	err = circulation.RetryWithExponentialBackoff(context.Background(), noop, circulation.WithBaseDelay(-time.Second))
	assert.ErrorIs(t, err, circulation.ErrNegativeBaseDelay)

	err = circulation.RetryWithExponentialBackoff(context.Background(), noop, circulation.WithJitterFactor(1.5))
	assert.ErrorIs(t, err, circulation.ErrInvalidJitterFactor)
}

func Test_Retry_When_MetricsConfigured_CountsRetries(t *testing.T) {
	// arrange
	metrics := helper.NewMetricsCollectorSpy()
	attempts := 0

	// act
	err := circulation.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return circulation.ErrContention
		}
		return nil
	},
		circulation.WithBaseDelay(time.Millisecond),
		circulation.WithRetryMetrics(metrics, "issue_loan"),
	)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 2, metrics.CounterCount(circulation.MetricContentionRetries))
}
