package teams

import (
	"fmt"
	"strings"

	"github.com/meridianlab/listingintel/internal/findings"
)

// FindingsDigest flattens the structured findings gathered so far into
// the text block the listing gap analyst consumes. Review-team findings
// come first as the primary source; auditor traps supplement them.
func FindingsDigest(rc *RunContext) string {
	var lines []string

	if out, ok := rc.Outcome(AgentNegativeInvestigator); ok && out.Ok() {
		if report, ok := out.Payload.(*findings.DealbreakerReport); ok {
			for _, d := range report.Dealbreakers {
				lines = append(lines, fmt.Sprintf(
					"[Customer Dealbreaker] (%s severity) %s — %q", d.Severity, d.Issue, d.Quote))
			}
			for _, m := range report.MissingInfo {
				lines = append(lines, fmt.Sprintf(
					"[Unanswered Question] %s (Risk: %s)", m.Question, m.Risk))
			}
		}
	}

	if out, ok := rc.Outcome(AgentPositiveMapper); ok && out.Ok() {
		if set, ok := out.Payload.(*findings.HeroScenarioSet); ok {
			for _, h := range set.Scenarios {
				lines = append(lines, fmt.Sprintf(
					"[Hero Scenario] %s: %s (intent: %s)", h.Occasion, h.Emotion, h.Intent))
			}
		}
	}

	for _, src := range []struct{ agent, label string }{
		{AgentConversationAuditor, "Conversation Audit"},
		{AgentListingAuditor, "Listing Audit"},
	} {
		out, ok := rc.Outcome(src.agent)
		if !ok || !out.Ok() {
			continue
		}
		report, ok := out.Payload.(*findings.AuditorReport)
		if !ok {
			continue
		}
		for _, trap := range report.TrapQuestions {
			lines = append(lines, fmt.Sprintf(
				"[%s] %s: %s", src.label, trap.Type, trap.Reasoning))
		}
	}

	if len(lines) == 0 {
		return "(No intelligence findings available — run a basic listing audit)"
	}
	return strings.Join(lines, "\n")
}
