// Package agents wraps single calls to the completion service in a
// uniform invocation contract. All failure modes are contained here and
// expressed as Outcome values; nothing thrown by a call unwinds past
// this boundary.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/findings"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/metrics"
	"github.com/meridianlab/listingintel/internal/prompts"
	"github.com/meridianlab/listingintel/internal/recovery"
)

// Request describes one agent invocation.
type Request struct {
	AgentName   string
	Template    string
	Context     map[string]string
	Credentials llm.Credentials
	Temperature float64
	// Decode turns the recovered map into the agent family's typed
	// payload. Nil means the agent answers free text (the synthesizer);
	// the raw response is returned untouched via RawText.
	Decode func(map[string]any) (findings.Payload, error)
}

// Invoker hydrates a template, issues one blocking completion call, and
// classifies the result. No retries happen here; retry policy belongs to
// the transport layer.
type Invoker struct {
	client llm.Client
	store  *prompts.Store
	logger *zap.Logger
}

// NewInvoker wires an invoker.
func NewInvoker(client llm.Client, store *prompts.Store, logger *zap.Logger) *Invoker {
	return &Invoker{client: client, store: store, logger: logger}
}

// Invoke runs one agent and always returns a terminal Outcome.
// An unknown template name is a configuration error and is returned as a
// real error instead; every service-side failure becomes an Error
// outcome.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (Outcome, error) {
	tpl, err := inv.store.Get(req.Template)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		ID:        uuid.New(),
		AgentName: req.AgentName,
		StartedAt: time.Now().UTC(),
	}

	prompt := prompts.Hydrate(tpl, req.Context)
	inv.logger.Info("Invoking agent",
		zap.String("agent", req.AgentName),
		zap.String("template", req.Template),
		zap.String("model", req.Credentials.Model),
		zap.Int("prompt_chars", len(prompt)),
	)

	raw, callErr := inv.client.Complete(ctx, llm.Request{
		Provider:    req.Credentials.Provider,
		APIKey:      req.Credentials.APIKey,
		Model:       req.Credentials.Model,
		Temperature: req.Temperature,
		Prompt:      prompt,
	})
	out.Elapsed = time.Since(out.StartedAt)
	metrics.AgentDuration.WithLabelValues(req.AgentName).Observe(out.Elapsed.Seconds())

	if callErr != nil {
		out.Status = StatusError
		out.Error = Truncate(callErr.Error(), maxErrorLen)
		inv.finish(&out)
		return out, nil
	}

	if req.Decode == nil {
		// Free-text agent: the raw response is the payload.
		out.Status = StatusOk
		out.Payload = &findings.Freeform{Text: raw}
		inv.finish(&out)
		return out, nil
	}

	res := recovery.Recover(raw)
	if res.Degraded {
		out.Status = StatusError
		out.Error = Truncate("structured recovery degraded", maxErrorLen)
		out.RawExcerpt = Truncate(res.Excerpt, maxRawExcerpt)
		inv.finish(&out)
		return out, nil
	}

	payload, decodeErr := req.Decode(res.Payload)
	if decodeErr != nil {
		out.Status = StatusError
		out.Error = Truncate(fmt.Sprintf("payload shape mismatch: %v", decodeErr), maxErrorLen)
		out.RawExcerpt = Truncate(raw, maxRawExcerpt)
		inv.finish(&out)
		return out, nil
	}

	out.Status = StatusOk
	out.Payload = payload
	inv.finish(&out)
	return out, nil
}

func (inv *Invoker) finish(out *Outcome) {
	metrics.AgentInvocations.WithLabelValues(out.AgentName, string(out.Status)).Inc()
	switch out.Status {
	case StatusOk:
		inv.logger.Info("Agent complete",
			zap.String("agent", out.AgentName),
			zap.Duration("elapsed", out.Elapsed),
		)
	default:
		inv.logger.Warn("Agent failed",
			zap.String("agent", out.AgentName),
			zap.String("error", out.Error),
			zap.Duration("elapsed", out.Elapsed),
		)
	}
}
