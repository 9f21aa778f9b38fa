// Package synthesis turns an aggregated intelligence dossier into the
// final markdown strategy report with a single completion call.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/aggregate"
	"github.com/meridianlab/listingintel/internal/findings"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/metrics"
	"github.com/meridianlab/listingintel/internal/prompts"
	"github.com/meridianlab/listingintel/internal/teams"
)

// Synthesizer issues the strategist call. At most one synthesis happens
// per run; the gate in the aggregate package decides whether it happens
// at all.
type Synthesizer struct {
	invoker *agents.Invoker
	logger  *zap.Logger
}

// NewSynthesizer wires a synthesizer.
func NewSynthesizer(invoker *agents.Invoker, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{invoker: invoker, logger: logger}
}

// Synthesize renders the dossier to indented JSON, invokes the
// strategist as a free-text agent, and returns the markdown report. A
// transport failure is returned as a visible error document rather than
// an empty report, alongside the error for the caller's statistics.
func (s *Synthesizer) Synthesize(ctx context.Context, in aggregate.Intelligence, creds llm.Credentials, temperature float64) (string, agents.Outcome, error) {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		// Intelligence is built from plain structs; this cannot fail in
		// practice.
		return "", agents.Outcome{}, fmt.Errorf("encode intelligence: %w", err)
	}

	start := time.Now()
	out, err := s.invoker.Invoke(ctx, agents.Request{
		AgentName:   teams.AgentStrategist,
		Template:    prompts.TplStrategySynthesis,
		Context:     map[string]string{"INTELLIGENCE_JSON": string(data)},
		Credentials: creds,
		Temperature: temperature,
	})
	metrics.SynthesisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", agents.Outcome{}, err
	}

	if out.Status != agents.StatusOk {
		s.logger.Warn("Synthesis call failed",
			zap.String("error", out.Error),
		)
		return errorReport(out.Error), out, nil
	}

	text, ok := out.Payload.(*findings.Freeform)
	if !ok {
		return "", out, fmt.Errorf("synthesis payload is %T, not free text", out.Payload)
	}
	return text.Text, out, nil
}

func errorReport(reason string) string {
	return fmt.Sprintf(
		"# Strategy Synthesis Failed\n\nThe strategist call did not complete: %s\n\nThe aggregated intelligence for this run was preserved; re-run the synthesis once the provider recovers.\n",
		reason)
}
