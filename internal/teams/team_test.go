package teams

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/findings"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/prompts"
	"github.com/meridianlab/listingintel/internal/ratecontrol"
)

type scripted struct {
	text string
	err  error
}

// scriptClient replays canned responses in call order and records every
// prompt it was handed.
type scriptClient struct {
	responses []scripted
	calls     int
	prompts   []string
}

func (c *scriptClient) Complete(_ context.Context, req llm.Request) (string, error) {
	c.prompts = append(c.prompts, req.Prompt)
	if c.calls >= len(c.responses) {
		return "", fmt.Errorf("unexpected call %d", c.calls)
	}
	s := c.responses[c.calls]
	c.calls++
	return s.text, s.err
}

// countingPacer records how many courtesy pauses the orchestrator took.
type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return nil
}

func newOrchestrator(t *testing.T, client llm.Client, pacer ratecontrol.Pacer) *Orchestrator {
	t.Helper()
	logger := zap.NewNop()
	store := prompts.NewStore(logger)
	inv := agents.NewInvoker(client, store, logger)
	return NewOrchestrator(inv, pacer, logger)
}

func creds() llm.Credentials {
	return llm.Credentials{Provider: llm.ProviderOpenAI, APIKey: "k", Model: "m"}
}

const auditorJSON = `{"auditor_report": {"weakness_found": "seam durability unverified", "trap_questions": [{"type": "Durability", "question": "Does the seam split?", "reasoning": "no stress testing mentioned"}]}}`

const insightJSON = `{"product_insight": {"customer_profile": "gift buyer", "key_desire": "worry-free gift", "key_fear": "arrives damaged", "validation_questions": []}}`

const marketingJSON = `{"marketing_insight": {"core_identity": "premium keepsake", "key_selling_point": "hand-stitched", "confirmation_questions": []}}`

const gatekeeperJSON = `{"gatekeeper": {"positive_count": 2, "negative_count": 1, "positive_text": "Love it. Perfect gift.", "negative_text": "Zipper broke in a week."}}`

const heroJSON = `{"hero_scenarios": [{"occasion": "birthday gift", "emotion": "delight", "quote": "she cried happy tears", "intent": "gifting"}]}`

const dealbreakerJSON = `{"dealbreakers": [{"type": "quality", "issue": "zipper failure", "severity": "high", "quote": "broke in a week"}], "missing_info": [{"question": "Is the zipper metal?", "status": "unanswered", "risk": "lost sale"}]}`

const gapJSON = `{"gap_analysis": {"coverage_score": 4, "addressed": [], "unaddressed": [{"issue": "zipper failure", "source": "reviews", "priority": "high"}], "fix_suggestions": [], "seo_flags": []}}`

func TestAuditTeamRunsAllFour(t *testing.T) {
	client := &scriptClient{responses: []scripted{
		{text: auditorJSON},
		{text: insightJSON},
		{text: auditorJSON},
		{text: marketingJSON},
	}}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{
		Part1Context: "customer asked about zipper strength",
		Part2Text:    "Plush toy, hand-stitched, machine washable",
	}, creds(), 0.7)

	res, err := o.RunTeam(context.Background(), TeamAudit, AuditTeam(), rc)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Stats.AgentsRun)
	assert.Equal(t, 4, res.Stats.AgentsOk)
	assert.Equal(t, 0, res.Stats.AgentsError)
	require.Len(t, res.Outcomes, 4)

	out, ok := rc.Outcome(AgentConversationAuditor)
	require.True(t, ok)
	report, ok := out.Payload.(*findings.AuditorReport)
	require.True(t, ok)
	assert.Equal(t, "seam durability unverified", report.WeaknessFound)
}

func TestAuditTeamSkipsMissingInputs(t *testing.T) {
	client := &scriptClient{responses: []scripted{
		{text: auditorJSON},
		{text: marketingJSON},
	}}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{Part2Text: "Plush toy, machine washable"}, creds(), 0.7)

	res, err := o.RunTeam(context.Background(), TeamAudit, AuditTeam(), rc)
	require.NoError(t, err)

	// Conversation agents skipped, listing agents ran. Skips appear in
	// the outcome list but never in the counters.
	require.Len(t, res.Outcomes, 4)
	assert.Equal(t, 2, res.Stats.AgentsRun)
	assert.Equal(t, 2, res.Stats.AgentsOk)
	assert.Equal(t, res.Stats.AgentsRun, res.Stats.AgentsOk+res.Stats.AgentsError)

	out, ok := rc.Outcome(AgentConversationAuditor)
	require.True(t, ok)
	assert.Equal(t, agents.StatusSkipped, out.Status)
	assert.Contains(t, out.Error, "no conversation text")
	assert.Equal(t, 2, client.calls)
}

func TestTaskFailureDoesNotStopSiblings(t *testing.T) {
	client := &scriptClient{responses: []scripted{
		{err: fmt.Errorf("completion service: status 503")},
		{text: insightJSON},
		{text: auditorJSON},
		{text: marketingJSON},
	}}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{Part1Context: "chat", Part2Text: "listing"}, creds(), 0.7)

	res, err := o.RunTeam(context.Background(), TeamAudit, AuditTeam(), rc)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Stats.AgentsRun)
	assert.Equal(t, 3, res.Stats.AgentsOk)
	assert.Equal(t, 1, res.Stats.AgentsError)

	out, ok := rc.Outcome(AgentConversationAuditor)
	require.True(t, ok)
	assert.Equal(t, agents.StatusError, out.Status)
	assert.Contains(t, out.Error, "503")
}

func TestReviewTeamGatekeeperFeedDownstream(t *testing.T) {
	client := &scriptClient{responses: []scripted{
		{text: gatekeeperJSON},
		{text: heroJSON},
		{text: dealbreakerJSON},
	}}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{RawReviews: "Love it. Zipper broke."}, creds(), 0.7)

	res, err := o.RunTeam(context.Background(), TeamReview, ReviewTeam(), rc)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.AgentsOk)

	// The mapper and investigator must receive the gatekeeper's split
	// buckets, not the raw dump.
	require.Len(t, client.prompts, 3)
	assert.Contains(t, client.prompts[1], "Love it. Perfect gift.")
	assert.NotContains(t, client.prompts[1], "Zipper broke in a week.")
	assert.Contains(t, client.prompts[2], "Zipper broke in a week.")
}

func TestReviewTeamSoftDependencyOnGatekeeper(t *testing.T) {
	client := &scriptClient{responses: []scripted{
		{err: fmt.Errorf("completion service: timeout")},
	}}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{RawReviews: "some reviews"}, creds(), 0.7)

	res, err := o.RunTeam(context.Background(), TeamReview, ReviewTeam(), rc)
	require.NoError(t, err)

	// Only the gatekeeper was invoked; its dependents were skipped, not
	// attempted and failed.
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, res.Stats.AgentsRun)
	assert.Equal(t, 1, res.Stats.AgentsError)

	for _, name := range []string{AgentPositiveMapper, AgentNegativeInvestigator} {
		out, ok := rc.Outcome(name)
		require.True(t, ok, name)
		assert.Equal(t, agents.StatusSkipped, out.Status)
		assert.Contains(t, out.Error, AgentReviewGatekeeper)
	}
}

func TestReviewTeamSkipsEmptyBucket(t *testing.T) {
	split := `{"gatekeeper": {"positive_count": 1, "negative_count": 0, "positive_text": "Great quality.", "negative_text": ""}}`
	client := &scriptClient{responses: []scripted{
		{text: split},
		{text: heroJSON},
	}}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{RawReviews: "Great quality."}, creds(), 0.7)

	res, err := o.RunTeam(context.Background(), TeamReview, ReviewTeam(), rc)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.AgentsRun)
	assert.Equal(t, 2, res.Stats.AgentsOk)

	out, ok := rc.Outcome(AgentNegativeInvestigator)
	require.True(t, ok)
	assert.Equal(t, agents.StatusSkipped, out.Status)
	assert.Contains(t, out.Error, "no negative reviews")
}

func TestCourtesyPauseBetweenInvocationsOnly(t *testing.T) {
	client := &scriptClient{responses: []scripted{
		{text: auditorJSON},
		{text: marketingJSON},
	}}
	pacer := &countingPacer{}
	o := newOrchestrator(t, client, pacer)
	// Two of four tasks skip; pauses happen between real calls only and
	// never before the first.
	rc := NewRunContext(Input{Part2Text: "listing text"}, creds(), 0.7)

	_, err := o.RunTeam(context.Background(), TeamAudit, AuditTeam(), rc)
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, 1, pacer.waits)
}

func TestCancelledRunSkipsRemainingTasks(t *testing.T) {
	client := &scriptClient{}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{Part1Context: "chat", Part2Text: "listing"}, creds(), 0.7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.RunTeam(ctx, TeamAudit, AuditTeam(), rc)
	require.NoError(t, err)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, 0, res.Stats.AgentsRun)
	require.Len(t, res.Outcomes, 4)
	for _, out := range res.Outcomes {
		assert.Equal(t, agents.StatusSkipped, out.Status)
		assert.Contains(t, out.Error, "cancelled")
	}
}

func TestListingTeamFoldsPriorFindings(t *testing.T) {
	client := &scriptClient{responses: []scripted{
		{text: gapJSON},
	}}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{
		ListingTitle:   "Plush Bear 40cm",
		ListingBullets: "- hand-stitched\n- machine washable",
	}, creds(), 0.7)

	rc.record(agents.Outcome{
		AgentName: AgentNegativeInvestigator,
		Status:    agents.StatusOk,
		Payload: &findings.DealbreakerReport{
			Dealbreakers: []findings.Dealbreaker{
				{Type: "quality", Issue: "zipper failure", Severity: "high", Quote: "broke in a week"},
			},
		},
	})

	res, err := o.RunTeam(context.Background(), TeamListing, ListingTeam(), rc)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.AgentsOk)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "Plush Bear 40cm")
	assert.Contains(t, prompt, "[Customer Dealbreaker] (high severity) zipper failure")
	assert.NotContains(t, prompt, "__LISTING_TITLE__")
	assert.NotContains(t, prompt, "__ALL_FINDINGS__")
}

func TestListingTeamSkipsWithoutContent(t *testing.T) {
	client := &scriptClient{}
	o := newOrchestrator(t, client, ratecontrol.Nop{})
	rc := NewRunContext(Input{RawReviews: "reviews only"}, creds(), 0.7)

	res, err := o.RunTeam(context.Background(), TeamListing, ListingTeam(), rc)
	require.NoError(t, err)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, 0, res.Stats.AgentsRun)

	out, ok := rc.Outcome(AgentGapAnalyst)
	require.True(t, ok)
	assert.Equal(t, agents.StatusSkipped, out.Status)
}

func TestObserverSeesEveryOutcome(t *testing.T) {
	client := &scriptClient{responses: []scripted{
		{text: auditorJSON},
		{text: marketingJSON},
	}}
	o := newOrchestrator(t, client, ratecontrol.Nop{})

	var seen []string
	o.Observer = func(teamName string, out agents.Outcome) {
		seen = append(seen, fmt.Sprintf("%s/%s/%s", teamName, out.AgentName, out.Status))
	}

	rc := NewRunContext(Input{Part2Text: "listing"}, creds(), 0.7)
	_, err := o.RunTeam(context.Background(), TeamAudit, AuditTeam(), rc)
	require.NoError(t, err)

	require.Len(t, seen, 4)
	assert.Contains(t, seen, "audit/"+AgentConversationAuditor+"/skipped")
	assert.Contains(t, seen, "audit/"+AgentListingAuditor+"/ok")
}

func TestExtractTags(t *testing.T) {
	text := "**Soft Plush**, machine washable\n- hypoallergenic fill\nThis is a long descriptive sentence that should not be a tag.\nmachine washable"
	tags := ExtractTags(text)
	assert.Equal(t, []string{"Soft Plush", "hypoallergenic fill", "machine washable"}, tags)
}

func TestExtractTagsCountsRunesNotBytes(t *testing.T) {
	// 14 runes, 42 bytes; a byte count would drop it as too long.
	tag := "超柔らかいぬいぐるみ、洗濯可"
	tags := ExtractTags(tag + "\n" + strings.Repeat("長", 40))
	assert.Equal(t, []string{tag}, tags)
}

func TestExtractTagsEmpty(t *testing.T) {
	assert.Nil(t, ExtractTags("   \n  "))
	assert.Equal(t, "(no tags detected)", TagsLine(nil))
}

func TestFindingsDigestEmpty(t *testing.T) {
	rc := NewRunContext(Input{}, creds(), 0.7)
	digest := FindingsDigest(rc)
	if !strings.Contains(digest, "No intelligence findings available") {
		t.Fatalf("empty digest = %q", digest)
	}
}
