package agents

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridianlab/listingintel/internal/findings"
)

// Status is the terminal classification of one agent invocation. Every
// invocation path ends in exactly one of these; there is no
// indeterminate state.
type Status string

const (
	StatusOk      Status = "ok"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Bounds on diagnostic text kept in outcomes, so a pathological response
// cannot balloon logs or UI payloads.
const (
	maxErrorLen   = 300
	maxRawExcerpt = 200
)

// Outcome records one agent invocation. Immutable after creation.
type Outcome struct {
	ID        uuid.UUID        `json:"id"`
	AgentName string           `json:"agent_name"`
	Status    Status           `json:"status"`
	Payload   findings.Payload `json:"payload,omitempty"`
	// RawExcerpt carries a bounded slice of the raw response when
	// structured recovery degraded, for human diagnosis.
	RawExcerpt string        `json:"raw_excerpt,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Ok reports whether the agent produced a usable payload.
func (o *Outcome) Ok() bool {
	return o.Status == StatusOk && o.Payload != nil
}

// Skipped builds a Skipped outcome with the given reason. Skipping is
// not failure: skipped outcomes carry their reason in Error for display
// but are excluded from run statistics.
func Skipped(agentName, reason string) Outcome {
	return Outcome{
		ID:        uuid.New(),
		AgentName: agentName,
		Status:    StatusSkipped,
		Error:     Truncate(reason, maxErrorLen),
		StartedAt: time.Now().UTC(),
	}
}

// Truncate bounds s to n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
