package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	fail := func() error { return errBoom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Call(fail), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Call(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Call(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls, "open breaker must not call through")

	t.Run("failed trial reopens", func(t *testing.T) {
		now = now.Add(time.Minute)
		assert.ErrorIs(t, cb.Call(fail), errBoom)
		assert.Equal(t, StateOpen, cb.State())
		assert.ErrorIs(t, cb.Call(ok), ErrCircuitOpen)
	})

	t.Run("successful trial closes", func(t *testing.T) {
		now = now.Add(time.Minute)
		require.NoError(t, cb.Call(ok))
		assert.Equal(t, StateClosed, cb.State())
		assert.Zero(t, cb.Failures())
		assert.Equal(t, "closed", cb.GetStats()["state"])
	})
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})

	_ = cb.Call(func() error { return errBoom })
	require.NoError(t, cb.Call(func() error { return nil }))
	_ = cb.Call(func() error { return errBoom })

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Failures())
}

func TestRetryWithConfig(t *testing.T) {
	errPermanent := errors.New("permanent")
	config := RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		BackoffFactor:   1,
		RetryableErrors: func(err error) bool { return !errors.Is(err, errPermanent) },
	}

	tests := []struct {
		name          string
		results       []error
		expectedCalls int
		expectedErr   error
	}{
		{name: "first try succeeds", results: []error{nil}, expectedCalls: 1},
		{name: "succeeds after transient failures", results: []error{errBoom, errBoom, nil}, expectedCalls: 3},
		{name: "gives up after max attempts", results: []error{errBoom, errBoom, errBoom, nil}, expectedCalls: 3, expectedErr: errBoom},
		{name: "permanent error stops immediately", results: []error{errPermanent, nil}, expectedCalls: 1, expectedErr: errPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithConfig(context.Background(), config, func() error {
				err := tt.results[calls]
				calls++
				return err
			})

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestRetryWithConfig_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, BackoffFactor: 1}

	calls := 0
	err := RetryWithConfig(ctx, config, func() error {
		calls++
		cancel()
		return errBoom
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateDelay(t *testing.T) {
	config := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(config, 0))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(config, 1))
	assert.Equal(t, 300*time.Millisecond, calculateDelay(config, 2))

	config.JitterEnabled = true
	d := calculateDelay(config, 0)
	assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	assert.Less(t, d, 110*time.Millisecond)
}
