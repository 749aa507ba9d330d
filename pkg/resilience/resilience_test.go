package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

var errBackend = errors.New("backend down")

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange:    func(_ string, to State) { transitions = append(transitions, to) },
	})
	now := time.Now()
	cb.now = func() time.Time { return now }

	fail := func() error { return errBackend }
	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreakerHalfOpenProbeFails(t *testing.T) {
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }

	cb.Execute(func() error { return errBackend })
	require.Equal(t, StateOpen, cb.GetState())
	now = now.Add(2 * time.Second)
	cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerIgnoredErrors(t *testing.T) {
	miss := errors.New("miss")
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{FailureThreshold: 1})
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.ExecuteIgnoring(func() error { return miss }, miss), miss)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestRetry(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "connect", RetryConfig{MaxAttempts: 4, InitialDelay: time.Millisecond}, func() error {
		attempts++
		if attempts < 3 {
			return errBackend
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = Retry(context.Background(), "connect", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		attempts++
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 2, attempts)
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, apperrors.ErrFormat) },
	}
	err := Retry(context.Background(), "load synonyms", cfg, func() error {
		attempts++
		return apperrors.Formatf("synonyms line 1: second word not found")
	})
	assert.ErrorIs(t, err, apperrors.ErrFormat)
	assert.Equal(t, 1, attempts)
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "connect", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		return errBackend
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "cache get", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = WithTimeout(context.Background(), time.Second, "cache get", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	assert.NoError(t, WithTimeout(context.Background(), 0, "unbounded", func(ctx context.Context) error { return nil }))
}
