package breaker

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// breakers share a global metric registry, so every test needs a unique name
func newBreaker(cfg Config) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "test-" + uuid.NewString()
	}
	return New(cfg, newTestLogger())
}

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	b := newBreaker(Config{FailureThreshold: 3, Timeout: time.Minute})

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_PropagatesErrors(t *testing.T) {
	b := newBreaker(Config{FailureThreshold: 3, Timeout: time.Minute})
	boom := errors.New("boom")

	err := b.Do(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := newBreaker(Config{FailureThreshold: 2, Timeout: time.Minute})
	boom := errors.New("boom")

	require.Error(t, b.Do(func() error { return boom }))
	require.Error(t, b.Do(func() error { return boom }))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	// Open breaker rejects without invoking fn.
	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newBreaker(Config{FailureThreshold: 2, Timeout: time.Minute})
	boom := errors.New("boom")

	require.Error(t, b.Do(func() error { return boom }))
	require.NoError(t, b.Do(func() error { return nil }))
	require.Error(t, b.Do(func() error { return boom }))

	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b := newBreaker(Config{FailureThreshold: 1, Timeout: 20 * time.Millisecond})

	require.Error(t, b.Do(func() error { return errors.New("boom") }))
	require.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)

	// First probe after the timeout goes through; success closes the breaker.
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_IsFailureClassifier(t *testing.T) {
	benign := errors.New("expected condition")
	b := newBreaker(Config{
		FailureThreshold: 1,
		Timeout:          time.Minute,
		IsFailure:        func(err error) bool { return !errors.Is(err, benign) },
	})

	// Classified as non-failure: propagates but does not trip.
	require.Error(t, b.Do(func() error { return benign }))
	require.Error(t, b.Do(func() error { return benign }))
	assert.Equal(t, gobreaker.StateClosed, b.State())

	require.Error(t, b.Do(func() error { return errors.New("real failure") }))
	assert.Equal(t, gobreaker.StateOpen, b.State())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("relay")
	assert.Equal(t, "relay", cfg.Name)
	assert.Equal(t, uint32(5), cfg.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
}
