// Package pipeline owns the full analysis run: team execution in fixed
// order, the synthesis gate, report assembly, and archival. One run is
// strictly sequential; independent runs share nothing but the read-only
// template store and the transport client.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridianlab/listingintel/internal/aggregate"
	"github.com/meridianlab/listingintel/internal/teams"
)

// State is a run's lifecycle phase.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	// StateFailed means the synthesis gate aborted the run: no agent
	// produced usable intelligence and the report is a failure report.
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Run is one analysis from input to final report. Once the state is
// terminal the run is never mutated again and may be serialized
// wholesale.
type Run struct {
	ID    uuid.UUID   `json:"id"`
	State State       `json:"state"`
	Input teams.Input `json:"input"`
	// InputDigest keys the report cache and the archive.
	InputDigest string `json:"input_digest"`

	TeamResults []teams.Result         `json:"team_results"`
	Aggregate   aggregate.Intelligence `json:"aggregate"`
	Report      string                 `json:"report"`
	Warning     string                 `json:"warning,omitempty"`
	Stats       teams.Stats            `json:"stats"`
	// CacheHit marks a run answered from the report cache without any
	// agent invocations.
	CacheHit bool `json:"cache_hit,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func newRun(input teams.Input, digest string) *Run {
	return &Run{
		ID:          uuid.New(),
		State:       StateRunning,
		Input:       input,
		InputDigest: digest,
		StartedAt:   time.Now().UTC(),
	}
}

func (r *Run) finish(state State) {
	now := time.Now().UTC()
	r.State = state
	r.CompletedAt = &now
}
