package aggregate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/findings"
	"github.com/meridianlab/listingintel/internal/teams"
)

func okOutcome(agent string, payload findings.Payload) agents.Outcome {
	return agents.Outcome{AgentName: agent, Status: agents.StatusOk, Payload: payload}
}

func TestBuildTagsProvenance(t *testing.T) {
	results := []teams.Result{
		{
			TeamName: teams.TeamAudit,
			Outcomes: []agents.Outcome{
				okOutcome(teams.AgentConversationAuditor, &findings.AuditorReport{
					TrapQuestions: []findings.TrapQuestion{
						{Type: "Durability", Question: "Will the seam split?", Reasoning: "unverified"},
					},
				}),
			},
			Stats: teams.Stats{AgentsRun: 1, AgentsOk: 1},
		},
		{
			TeamName: teams.TeamReview,
			Outcomes: []agents.Outcome{
				okOutcome(teams.AgentNegativeInvestigator, &findings.DealbreakerReport{
					Dealbreakers: []findings.Dealbreaker{
						{Type: "quality", Issue: "zipper failure", Severity: "high", Quote: "broke"},
					},
				}),
			},
			Stats: teams.Stats{AgentsRun: 1, AgentsOk: 1},
		},
	}

	in := Build(results)

	require.Len(t, in.TrapArchive, 1)
	assert.Equal(t, teams.TeamAudit, in.TrapArchive[0].Team)
	assert.Equal(t, teams.AgentConversationAuditor, in.TrapArchive[0].Agent)

	require.Len(t, in.ProductRisks, 1)
	assert.Equal(t, teams.TeamReview, in.ProductRisks[0].Team)
	assert.Equal(t, teams.AgentNegativeInvestigator, in.ProductRisks[0].Agent)
	assert.Equal(t, "zipper failure", in.ProductRisks[0].Issue)
}

func TestBuildIgnoresFailedAndSkipped(t *testing.T) {
	results := []teams.Result{
		{
			TeamName: teams.TeamAudit,
			Outcomes: []agents.Outcome{
				{AgentName: teams.AgentConversationAuditor, Status: agents.StatusError, Error: "timeout"},
				agents.Skipped(teams.AgentListingAuditor, "no listing text"),
			},
			Stats: teams.Stats{AgentsRun: 1, AgentsError: 1},
		},
	}
	in := Build(results)
	assert.True(t, in.Empty())
}

func TestBuildFansOutCompositePayloads(t *testing.T) {
	results := []teams.Result{
		{
			TeamName: teams.TeamReview,
			Outcomes: []agents.Outcome{
				okOutcome(teams.AgentReviewGatekeeper, &findings.GatekeeperSplit{
					PositiveCount: 3, NegativeCount: 2,
				}),
				okOutcome(teams.AgentPositiveMapper, &findings.HeroScenarioSet{
					Scenarios: []findings.HeroScenario{
						{Occasion: "birthday", Emotion: "delight", Quote: "loved it", Intent: "gifting"},
						{Occasion: "travel", Emotion: "relief", Quote: "fits carry-on", Intent: "practicality"},
					},
				}),
				okOutcome(teams.AgentNegativeInvestigator, &findings.DealbreakerReport{
					MissingInfo: []findings.MissingInfo{
						{Question: "Is the fill hypoallergenic?", Risk: "lost sale"},
					},
				}),
			},
		},
	}

	in := Build(results)
	assert.Len(t, in.MarketingAssets, 2)
	require.Len(t, in.CustomerReality, 2)
	assert.Contains(t, in.CustomerReality[0].Note, "3 positive, 2 negative")
	assert.Equal(t, "Is the fill hypoallergenic?", in.CustomerReality[1].Note)
}

func TestScalarsTakeFirstNonEmpty(t *testing.T) {
	results := []teams.Result{
		{
			TeamName: teams.TeamAudit,
			Outcomes: []agents.Outcome{
				okOutcome(teams.AgentConversationAnalyst, &findings.ProductInsight{
					CustomerProfile: "anxious gift buyer",
				}),
				okOutcome(teams.AgentListingAnalyst, &findings.MarketingInsight{
					KeySellingPoint: "hand-stitched seams",
				}),
			},
		},
		{
			TeamName: teams.TeamListing,
			Outcomes: []agents.Outcome{
				okOutcome("late-analyst", &findings.ProductInsight{
					CustomerProfile: "generic shopper",
				}),
			},
		},
	}

	in := Build(results)
	assert.Equal(t, "anxious gift buyer", in.PrimaryCustomer)
	assert.Equal(t, "hand-stitched seams", in.CorePromise)
	// The later read is not lost, only demoted to the list.
	assert.Len(t, in.TargetCustomer, 2)
}

func TestDecideAbortsWithZeroUsable(t *testing.T) {
	results := []teams.Result{
		{Stats: teams.Stats{AgentsRun: 3, AgentsError: 3}},
	}
	d := Decide(results, 2)
	assert.False(t, d.Synthesize)
	assert.Equal(t, 3, d.Stats.AgentsRun)
}

func TestDecideWarnsBelowFloor(t *testing.T) {
	results := []teams.Result{
		{Stats: teams.Stats{AgentsRun: 4, AgentsOk: 1, AgentsError: 3}},
	}
	d := Decide(results, 2)
	assert.True(t, d.Synthesize)
	assert.Contains(t, d.Warning, "Only 1 of 4")
}

func TestDecideCleanAtOrAboveFloor(t *testing.T) {
	results := []teams.Result{
		{Stats: teams.Stats{AgentsRun: 4, AgentsOk: 2, AgentsError: 2}},
		{Stats: teams.Stats{AgentsRun: 3, AgentsOk: 3}},
	}
	d := Decide(results, 2)
	assert.True(t, d.Synthesize)
	assert.Empty(t, d.Warning)
	assert.Equal(t, 5, d.Stats.AgentsOk)
	assert.Equal(t, d.Stats.AgentsRun, d.Stats.AgentsOk+d.Stats.AgentsError)
}

func TestDecideNothingRan(t *testing.T) {
	d := Decide([]teams.Result{{Stats: teams.Stats{}}}, 2)
	assert.False(t, d.Synthesize)
}

func TestFailureReportNamesEveryAgent(t *testing.T) {
	results := []teams.Result{
		{
			TeamName: teams.TeamAudit,
			Outcomes: []agents.Outcome{
				{AgentName: teams.AgentConversationAuditor, Status: agents.StatusError, Error: "completion service: status 503"},
				agents.Skipped(teams.AgentListingAuditor, "no listing info text provided"),
			},
		},
	}

	report := FailureReport(results)
	if !strings.Contains(report, "# Analysis Failed") {
		t.Fatalf("missing header:\n%s", report)
	}
	assert.Contains(t, report, teams.AgentConversationAuditor)
	assert.Contains(t, report, "failed (completion service: status 503)")
	assert.Contains(t, report, "skipped (no listing info text provided)")
}
