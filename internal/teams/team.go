// Package teams runs ordered groups of related agents. Tasks within a
// team execute strictly in sequence with a courtesy pause between
// completion calls; one task's failure never prevents its siblings from
// running. Skipping is distinct from failure and is excluded from run
// statistics.
package teams

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/findings"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/ratecontrol"
)

// Input is the raw analysis material one run operates on.
type Input struct {
	// Part1Context is the shopping-assistant conversation dump.
	Part1Context string `json:"part1_context"`
	// Part2Text is the official listing info and detected tags text.
	Part2Text string `json:"part2_text"`
	// RawReviews is the copy-pasted customer reviews and Q&A dump.
	RawReviews string `json:"raw_reviews"`

	ListingTitle   string `json:"listing_title"`
	ListingBullets string `json:"listing_bullets"`
	ListingAPlus   string `json:"listing_aplus"`
	ProductDetails string `json:"product_details"`
	APlusStatus    string `json:"aplus_status"`
}

// RunContext carries one run's input, credentials, and the outcomes
// accumulated so far. It is owned exclusively by the run that created it
// and never shared across runs.
type RunContext struct {
	Input       Input
	Credentials llm.Credentials
	Temperature float64

	mu       sync.RWMutex
	outcomes map[string]agents.Outcome
}

// NewRunContext builds the context for one pipeline run.
func NewRunContext(input Input, creds llm.Credentials, temperature float64) *RunContext {
	return &RunContext{
		Input:       input,
		Credentials: creds,
		Temperature: temperature,
		outcomes:    make(map[string]agents.Outcome),
	}
}

// Outcome returns a prior agent's outcome by name.
func (rc *RunContext) Outcome(agentName string) (agents.Outcome, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out, ok := rc.outcomes[agentName]
	return out, ok
}

func (rc *RunContext) record(out agents.Outcome) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.outcomes[out.AgentName] = out
}

// Task is one agent slot in a team.
type Task struct {
	AgentName string
	Template  string
	// Decode maps the recovered response onto the task's typed payload.
	Decode func(map[string]any) (findings.Payload, error)
	// Skip returns a non-empty reason when the task must not run, e.g.
	// its required input text is empty.
	Skip func(rc *RunContext) string
	// Requires names a prior task whose structured payload this task
	// consumes. When that task errored or produced no usable payload,
	// this task is skipped with a reason naming the prerequisite.
	Requires string
	// Context builds the hydration context, with access to prior
	// outcomes via rc.
	Context func(rc *RunContext) map[string]string
}

// Stats are per-team invocation counters. Skipped tasks are not run, so
// AgentsOk + AgentsError == AgentsRun always holds.
type Stats struct {
	AgentsRun   int `json:"agents_run"`
	AgentsOk    int `json:"agents_ok"`
	AgentsError int `json:"agents_error"`
}

// Result is one team's ordered outcomes plus statistics.
type Result struct {
	TeamName string           `json:"team_name"`
	Outcomes []agents.Outcome `json:"outcomes"`
	Stats    Stats            `json:"stats"`
}

// Orchestrator executes team task lists.
type Orchestrator struct {
	invoker *agents.Invoker
	pacer   ratecontrol.Pacer
	logger  *zap.Logger

	// Observer, when set, sees every outcome as it is recorded. The
	// pipeline uses it to stream per-agent progress.
	Observer func(teamName string, out agents.Outcome)
}

// NewOrchestrator wires a team orchestrator.
func NewOrchestrator(invoker *agents.Invoker, pacer ratecontrol.Pacer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{invoker: invoker, pacer: pacer, logger: logger}
}

// RunTeam executes tasks strictly in sequence. The returned error is
// non-nil only for configuration errors (an unknown template name);
// every service-side failure is contained in the outcomes.
func (o *Orchestrator) RunTeam(ctx context.Context, teamName string, tasks []Task, rc *RunContext) (Result, error) {
	res := Result{TeamName: teamName}
	invoked := false

	for _, task := range tasks {
		if ctx.Err() != nil {
			o.skip(&res, rc, task.AgentName, "run cancelled")
			continue
		}

		if task.Requires != "" {
			prior, ok := rc.Outcome(task.Requires)
			if !ok || !prior.Ok() {
				o.skip(&res, rc, task.AgentName,
					fmt.Sprintf("prerequisite %q produced no usable payload", task.Requires))
				continue
			}
		}

		if task.Skip != nil {
			if reason := task.Skip(rc); reason != "" {
				o.skip(&res, rc, task.AgentName, reason)
				continue
			}
		}

		// Courtesy pause between successive invocations, never before
		// the first.
		if invoked {
			if err := o.pacer.Wait(ctx); err != nil {
				o.skip(&res, rc, task.AgentName, "run cancelled")
				continue
			}
		}

		out, err := o.invoker.Invoke(ctx, agents.Request{
			AgentName:   task.AgentName,
			Template:    task.Template,
			Context:     task.Context(rc),
			Credentials: rc.Credentials,
			Temperature: rc.Temperature,
			Decode:      task.Decode,
		})
		if err != nil {
			return res, fmt.Errorf("team %s task %s: %w", teamName, task.AgentName, err)
		}
		invoked = true

		rc.record(out)
		res.Outcomes = append(res.Outcomes, out)
		res.Stats.AgentsRun++
		if out.Status == agents.StatusOk {
			res.Stats.AgentsOk++
		} else {
			res.Stats.AgentsError++
		}
		if o.Observer != nil {
			o.Observer(teamName, out)
		}
	}

	o.logger.Info("Team complete",
		zap.String("team", teamName),
		zap.Int("run", res.Stats.AgentsRun),
		zap.Int("ok", res.Stats.AgentsOk),
		zap.Int("errors", res.Stats.AgentsError),
	)
	return res, nil
}

func (o *Orchestrator) skip(res *Result, rc *RunContext, agentName, reason string) {
	out := agents.Skipped(agentName, reason)
	rc.record(out)
	res.Outcomes = append(res.Outcomes, out)
	o.logger.Info("Task skipped",
		zap.String("agent", agentName),
		zap.String("reason", reason),
	)
	if o.Observer != nil {
		o.Observer(res.TeamName, out)
	}
}
