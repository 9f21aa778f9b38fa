package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline run metrics
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listingintel_runs_started_total",
			Help: "Total number of analysis runs started",
		},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingintel_runs_completed_total",
			Help: "Total number of analysis runs completed",
		},
		[]string{"state"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listingintel_run_duration_seconds",
			Help:    "End-to-end analysis run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Agent metrics
	AgentInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingintel_agent_invocations_total",
			Help: "Total number of agent invocations by terminal status",
		},
		[]string{"agent", "status"},
	)

	AgentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listingintel_agent_duration_seconds",
			Help:    "Single agent invocation duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"agent"},
	)

	// Structured recovery metrics
	RecoveryStageWins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingintel_recovery_stage_wins_total",
			Help: "Recovery attempts resolved per winning stage",
		},
		[]string{"stage"},
	)

	RecoveryDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listingintel_recovery_degraded_total",
			Help: "Recovery attempts that exhausted every stage",
		},
	)

	// Synthesis gate metrics
	SynthesisAborts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listingintel_synthesis_aborts_total",
			Help: "Synthesis calls refused because no upstream agent succeeded",
		},
	)

	SynthesisDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listingintel_synthesis_degraded_total",
			Help: "Synthesis calls made below the configured success threshold",
		},
	)

	SynthesisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listingintel_synthesis_duration_seconds",
			Help:    "Final synthesis call duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	// Completion transport metrics
	CompletionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingintel_completion_requests_total",
			Help: "Completion service requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "listingintel_breaker_state",
			Help: "Transport circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	BreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingintel_breaker_trips_total",
			Help: "Transport circuit breaker transitions to open",
		},
		[]string{"name"},
	)

	// Template store metrics
	TemplatesLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingintel_templates_loaded_total",
			Help: "Prompt templates loaded into the store",
		},
		[]string{"source"},
	)

	TemplateErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingintel_template_errors_total",
			Help: "Prompt template load or validation failures",
		},
		[]string{"reason"},
	)

	// Report cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listingintel_report_cache_hits_total",
			Help: "Report cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listingintel_report_cache_misses_total",
			Help: "Report cache misses",
		},
	)
)
