package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/llm"
)

var errBoom = errors.New("boom")

func newTestBreaker(cfg Config) *Breaker {
	return New("test", cfg, zap.NewNop())
}

func fail(context.Context) error { return errBoom }
func ok(context.Context) error   { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 3
	b := newTestBreaker(cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	}
	assert.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Execute(ctx, fail), ErrOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 2
	b := newTestBreaker(cfg)

	ctx := context.Background()
	require.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	require.NoError(t, b.Execute(ctx, ok))
	require.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cfg := Config{
		FailureThreshold:    1,
		SuccessThreshold:    2,
		OpenTimeout:         10 * time.Millisecond,
		MaxHalfOpenRequests: 1,
	}
	b := newTestBreaker(cfg)
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(ctx, ok))
	require.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	cfg := Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		OpenTimeout:         10 * time.Millisecond,
		MaxHalfOpenRequests: 1,
	}
	b := newTestBreaker(cfg)
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, b.State())
}

type flakyClient struct {
	calls int
	err   error
}

func (f *flakyClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "text", nil
}

func TestCompletionClientFailsFastWhenOpen(t *testing.T) {
	cfg := Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		OpenTimeout:         time.Minute,
		MaxHalfOpenRequests: 1,
	}
	inner := &flakyClient{err: errBoom}
	wrapped := WrapClient(inner, "completion", cfg, zap.NewNop())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := wrapped.Complete(ctx, llm.Request{Provider: "openai"})
		require.ErrorIs(t, err, errBoom)
	}
	require.Equal(t, StateOpen, wrapped.State())

	// The breaker refuses before the transport is touched.
	before := inner.calls
	_, err := wrapped.Complete(ctx, llm.Request{Provider: "openai"})
	require.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, before, inner.calls)
}
