// Package ratecontrol paces successive completion calls. The external
// service is rate-limited per caller, so the orchestrator inserts a
// courtesy interval between invocations within a team rather than firing
// them back to back.
package ratecontrol

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next invocation may proceed.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer enforces a minimum interval between calls, derived from
// a requests-per-minute budget and a fixed courtesy floor, whichever is
// slower.
type IntervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer builds a pacer for rpm requests per minute with a
// minimum courtesy gap. rpm <= 0 means only the courtesy gap applies;
// both zero yields an unpaced pacer.
func NewIntervalPacer(rpm int, courtesy time.Duration) *IntervalPacer {
	interval := courtesy
	if rpm > 0 {
		if budget := time.Minute / time.Duration(rpm); budget > interval {
			interval = budget
		}
	}
	if interval <= 0 {
		return &IntervalPacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &IntervalPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait implements Pacer. It returns early with the context's error when
// the caller is cancelled mid-pause.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Nop is a pacer that never blocks, used in tests.
type Nop struct{}

// Wait implements Pacer.
func (Nop) Wait(context.Context) error { return nil }
