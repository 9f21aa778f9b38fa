package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/aggregate"
	"github.com/meridianlab/listingintel/internal/db"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/metrics"
	"github.com/meridianlab/listingintel/internal/ratecontrol"
	"github.com/meridianlab/listingintel/internal/runcache"
	"github.com/meridianlab/listingintel/internal/streaming"
	"github.com/meridianlab/listingintel/internal/synthesis"
	"github.com/meridianlab/listingintel/internal/teams"
)

// Runner executes analysis runs end to end. Cache, archive, and event
// bus are optional; a nil backend simply skips that concern. A fresh
// team orchestrator is built per run so concurrent runs share only the
// invoker and pacer, both safe for concurrent use.
type Runner struct {
	invoker     *agents.Invoker
	pacer       ratecontrol.Pacer
	synthesizer *synthesis.Synthesizer
	resolver    llm.Resolver
	// ProfileName selects credentials at run start, so a missing key
	// fails before any team runs.
	profileName string
	temperature float64
	minAgents   int

	cache   *runcache.Cache
	archive *db.Archive
	bus     *streaming.Bus
	logger  *zap.Logger
}

// RunnerOption configures optional backends.
type RunnerOption func(*Runner)

// WithCache enables report caching by input digest.
func WithCache(c *runcache.Cache) RunnerOption {
	return func(r *Runner) { r.cache = c }
}

// WithArchive persists terminal runs to PostgreSQL.
func WithArchive(a *db.Archive) RunnerOption {
	return func(r *Runner) { r.archive = a }
}

// WithBus streams per-agent progress events.
func WithBus(b *streaming.Bus) RunnerOption {
	return func(r *Runner) { r.bus = b }
}

// NewRunner wires a runner.
func NewRunner(
	invoker *agents.Invoker,
	pacer ratecontrol.Pacer,
	synthesizer *synthesis.Synthesizer,
	resolver llm.Resolver,
	profileName string,
	temperature float64,
	minAgents int,
	logger *zap.Logger,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		invoker:     invoker,
		pacer:       pacer,
		synthesizer: synthesizer,
		resolver:    resolver,
		profileName: profileName,
		temperature: temperature,
		minAgents:   minAgents,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs one analysis to a terminal state. The returned error
// covers only pre-flight failures (unresolvable credentials); every
// agent-level failure is data inside the run.
func (r *Runner) Execute(ctx context.Context, input teams.Input) (*Run, error) {
	return r.executeAs(ctx, uuid.New(), input)
}

func (r *Runner) executeAs(ctx context.Context, id uuid.UUID, input teams.Input) (*Run, error) {
	digest := runcache.DigestInput(input)

	if run, ok := r.fromCache(ctx, id, input, digest); ok {
		return run, nil
	}

	creds, err := r.resolver.Resolve(r.profileName)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}

	run := newRun(input, digest)
	run.ID = id
	metrics.RunsStarted.Inc()
	r.publish(run, streaming.Event{Type: streaming.TypeRunStarted})
	r.logger.Info("Run started",
		zap.String("run_id", run.ID.String()),
		zap.String("digest", digest),
	)

	rc := teams.NewRunContext(input, creds, r.temperature)
	r.runTeams(ctx, run, rc)

	if ctx.Err() != nil {
		run.finish(StateCancelled)
		r.conclude(run, streaming.TypeRunFailed, "run cancelled")
		return run, nil
	}

	decision := aggregate.Decide(run.TeamResults, r.minAgents)
	run.Stats = decision.Stats
	run.Aggregate = aggregate.Build(run.TeamResults)

	if !decision.Synthesize {
		metrics.SynthesisAborts.Inc()
		run.Report = aggregate.FailureReport(run.TeamResults)
		run.finish(StateFailed)
		r.conclude(run, streaming.TypeRunFailed, "no usable intelligence")
		return run, nil
	}

	r.publish(run, streaming.Event{Type: streaming.TypeSynthesis})
	report, out, err := r.synthesizer.Synthesize(ctx, run.Aggregate, creds, r.temperature)
	if err != nil {
		return nil, err
	}
	run.Warning = decision.Warning
	if decision.Warning != "" {
		metrics.SynthesisDegraded.Inc()
		report = fmt.Sprintf("> **Warning:** %s\n\n%s", decision.Warning, report)
	}
	run.Report = report
	run.finish(StateCompleted)

	if out.Status == agents.StatusOk {
		r.store(run)
	}
	r.conclude(run, streaming.TypeRunCompleted, "")
	return run, nil
}

func (r *Runner) runTeams(ctx context.Context, run *Run, rc *teams.RunContext) {
	rosters := []struct {
		name  string
		tasks []teams.Task
	}{
		{teams.TeamAudit, teams.AuditTeam()},
		{teams.TeamReview, teams.ReviewTeam()},
		{teams.TeamListing, teams.ListingTeam()},
	}

	orchestrator := teams.NewOrchestrator(r.invoker, r.pacer, r.logger)
	if r.bus != nil {
		orchestrator.Observer = func(teamName string, out agents.Outcome) {
			r.bus.Publish(run.ID.String(), streaming.Event{
				Type:    streaming.TypeAgentOutcome,
				Team:    teamName,
				Agent:   out.AgentName,
				Status:  string(out.Status),
				Message: out.Error,
			})
		}
	}

	for _, roster := range rosters {
		r.publish(run, streaming.Event{Type: streaming.TypeTeamStarted, Team: roster.name})
		res, err := orchestrator.RunTeam(ctx, roster.name, roster.tasks, rc)
		if err != nil {
			// Only an unknown built-in template reaches here; treat the
			// whole team as errored rather than crashing the run.
			r.logger.Error("Team configuration error",
				zap.String("team", roster.name),
				zap.Error(err),
			)
		}
		run.TeamResults = append(run.TeamResults, res)
	}
}

// fromCache answers the run from a cached report when possible.
func (r *Runner) fromCache(ctx context.Context, id uuid.UUID, input teams.Input, digest string) (*Run, bool) {
	if r.cache == nil {
		return nil, false
	}
	entry, hit, err := r.cache.Get(ctx, digest)
	if err != nil {
		r.logger.Warn("Report cache unavailable", zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}

	run := newRun(input, digest)
	run.ID = id
	run.CacheHit = true
	run.Report = entry.Report
	run.Warning = entry.Warning
	run.finish(StateCompleted)
	r.logger.Info("Run answered from cache",
		zap.String("run_id", run.ID.String()),
		zap.String("cached_run_id", entry.RunID),
	)
	return run, true
}

// store caches and archives a cleanly completed run, best effort.
func (r *Runner) store(run *Run) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if r.cache != nil {
		err := r.cache.Put(ctx, run.InputDigest, runcache.Entry{
			RunID:   run.ID.String(),
			Report:  run.Report,
			Warning: run.Warning,
		})
		if err != nil {
			r.logger.Warn("Report cache write failed", zap.Error(err))
		}
	}
	if r.archive != nil {
		if err := r.archive.SaveRun(ctx, record(run)); err != nil {
			r.logger.Warn("Run archive write failed", zap.Error(err))
		}
	}
}

// record maps a terminal run onto its archive row.
func record(run *Run) *db.RunRecord {
	detail := db.JSONB{
		"team_results": run.TeamResults,
		"aggregate":    run.Aggregate,
	}
	return &db.RunRecord{
		ID:          run.ID,
		State:       string(run.State),
		InputDigest: run.InputDigest,
		Report:      run.Report,
		Warning:     run.Warning,
		AgentsRun:   run.Stats.AgentsRun,
		AgentsOk:    run.Stats.AgentsOk,
		AgentsError: run.Stats.AgentsError,
		Detail:      detail,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}
}

func (r *Runner) publish(run *Run, evt streaming.Event) {
	if r.bus != nil {
		r.bus.Publish(run.ID.String(), evt)
	}
}

func (r *Runner) conclude(run *Run, eventType, message string) {
	metrics.RunsCompleted.WithLabelValues(string(run.State)).Inc()
	if run.CompletedAt != nil {
		metrics.RunDuration.Observe(run.CompletedAt.Sub(run.StartedAt).Seconds())
	}
	r.publish(run, streaming.Event{Type: eventType, Status: string(run.State), Message: message})
	r.logger.Info("Run finished",
		zap.String("run_id", run.ID.String()),
		zap.String("state", string(run.State)),
		zap.Int("agents_ok", run.Stats.AgentsOk),
		zap.Int("agents_error", run.Stats.AgentsError),
	)
}
