package ratecontrol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalPacerEnforcesGap(t *testing.T) {
	p := NewIntervalPacer(0, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx)) // first call passes immediately
	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestIntervalPacerUsesSlowerOfRPMAndCourtesy(t *testing.T) {
	// 1200 rpm is a 50ms budget; the 100ms courtesy floor wins.
	p := NewIntervalPacer(1200, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx))
	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestIntervalPacerUnpaced(t *testing.T) {
	p := NewIntervalPacer(0, 0)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestIntervalPacerCancellation(t *testing.T) {
	p := NewIntervalPacer(0, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, p.Wait(ctx))
	cancel()
	err := p.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
