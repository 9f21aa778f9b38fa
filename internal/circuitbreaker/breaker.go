// Package circuitbreaker guards the completion transport. This is the
// connection-level breaker: it trips on repeated transport failures so a
// struggling provider is not hammered. The run-level synthesis gate is a
// separate policy and lives in the aggregate package.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/metrics"
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker refuses a call outright.
var ErrOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when half-open probe capacity is spent.
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config holds the breaker thresholds.
type Config struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// MaxHalfOpenRequests bounds concurrent probes while half-open.
	MaxHalfOpenRequests uint32
}

// DefaultConfig returns thresholds suitable for a rate-limited text service.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		OpenTimeout:         30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// Breaker implements the circuit breaker state machine.
type Breaker struct {
	name   string
	config Config
	logger *zap.Logger

	mu                   sync.Mutex
	state                State
	consecutiveFailures  uint32
	consecutiveSuccesses uint32
	halfOpenInFlight     uint32
	openedAt             time.Time
}

// New constructs a closed breaker.
func New(name string, config Config, logger *zap.Logger) *Breaker {
	b := &Breaker{name: name, config: config, logger: logger, state: StateClosed}
	metrics.BreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return b
}

// State returns the current state, applying the open->half-open timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked(time.Now())
}

// Execute runs fn under the breaker. A refused call returns ErrOpen or
// ErrTooManyRequests without invoking fn.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.beforeRequest(); err != nil {
		return err
	}
	err := fn(ctx)
	b.afterRequest(err == nil)
	return err
}

func (b *Breaker) beforeRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked(time.Now()) {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.config.MaxHalfOpenRequests {
			return ErrTooManyRequests
		}
		b.halfOpenInFlight++
	}
	return nil
}

func (b *Breaker) afterRequest(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentStateLocked(time.Now())
	if state == StateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if success {
		b.consecutiveFailures = 0
		if state == StateHalfOpen {
			b.consecutiveSuccesses++
			if b.consecutiveSuccesses >= b.config.SuccessThreshold {
				b.setStateLocked(StateClosed)
			}
		}
		return
	}

	b.consecutiveSuccesses = 0
	switch state {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.config.FailureThreshold {
			b.setStateLocked(StateOpen)
		}
	case StateHalfOpen:
		// A failed probe reopens immediately.
		b.setStateLocked(StateOpen)
	}
}

func (b *Breaker) currentStateLocked(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.config.OpenTimeout {
		b.setStateLocked(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) setStateLocked(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.halfOpenInFlight = 0
	if next == StateOpen {
		b.openedAt = time.Now()
		metrics.BreakerTrips.WithLabelValues(b.name).Inc()
	}
	metrics.BreakerState.WithLabelValues(b.name).Set(float64(next))

	b.logger.Info("Circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}
