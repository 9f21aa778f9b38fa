// Package aggregate merges the typed findings of every team into one
// provenance-tagged intelligence dossier and decides whether a synthesis
// call is warranted for the run.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/findings"
	"github.com/meridianlab/listingintel/internal/teams"
)

// Provenance names the team and agent an aggregated item came from.
// Every item in the dossier carries one, so a synthesis reader can weigh
// conversational evidence differently from review evidence.
type Provenance struct {
	Team  string `json:"team"`
	Agent string `json:"agent"`
}

// CustomerProfile is an analyst's read of who the customer is.
type CustomerProfile struct {
	Provenance
	Profile string `json:"profile"`
	Desire  string `json:"desire"`
	Fear    string `json:"fear"`
}

// Risk is a product failure mode severe enough to threaten the sale.
type Risk struct {
	Provenance
	Type     string `json:"type"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
	Quote    string `json:"quote"`
}

// Asset is a positive real-world story marketing can reuse.
type Asset struct {
	Provenance
	Occasion string `json:"occasion"`
	Emotion  string `json:"emotion"`
	Quote    string `json:"quote"`
	Intent   string `json:"intent"`
}

// Trap is a hostile question the product must survive.
type Trap struct {
	Provenance
	Type      string `json:"type"`
	Question  string `json:"question"`
	Reasoning string `json:"reasoning"`
}

// RealityNote is an unanswered customer question or review-volume fact.
type RealityNote struct {
	Provenance
	Note string `json:"note"`
	Risk string `json:"risk,omitempty"`
}

// GapNote is a listing coverage defect found by the gap analyst.
type GapNote struct {
	Provenance
	Issue    string `json:"issue"`
	Priority string `json:"priority,omitempty"`
	Fix      string `json:"fix,omitempty"`
}

// Intelligence is the merged dossier handed to synthesis. The scalar
// headline fields take the first non-empty value in team order, so the
// audit team's conversational read wins over later teams; the lists are
// unions that keep every item with its provenance.
type Intelligence struct {
	// PrimaryCustomer is the headline customer read.
	PrimaryCustomer string `json:"primary_customer,omitempty"`
	// CorePromise is the headline selling point the listing makes.
	CorePromise string `json:"core_promise,omitempty"`

	TargetCustomer  []CustomerProfile `json:"target_customer"`
	ProductRisks    []Risk            `json:"product_risks"`
	MarketingAssets []Asset           `json:"marketing_assets"`
	TrapArchive     []Trap            `json:"trap_archive"`
	CustomerReality []RealityNote     `json:"customer_reality"`
	ListingGaps     []GapNote         `json:"listing_gaps"`
}

// Empty reports whether nothing at all was aggregated.
func (in *Intelligence) Empty() bool {
	return len(in.TargetCustomer) == 0 &&
		len(in.ProductRisks) == 0 &&
		len(in.MarketingAssets) == 0 &&
		len(in.TrapArchive) == 0 &&
		len(in.CustomerReality) == 0 &&
		len(in.ListingGaps) == 0
}

// Build merges every Ok outcome across teams into the dossier. Errored
// and skipped outcomes contribute nothing; their absence is visible in
// the run statistics, not here.
func Build(results []teams.Result) Intelligence {
	var in Intelligence
	for _, res := range results {
		for _, out := range res.Outcomes {
			if !out.Ok() {
				continue
			}
			in.absorb(Provenance{Team: res.TeamName, Agent: out.AgentName}, out.Payload)
		}
	}
	return in
}

func (in *Intelligence) absorb(prov Provenance, payload findings.Payload) {
	switch p := payload.(type) {
	case *findings.AuditorReport:
		for _, trap := range p.TrapQuestions {
			in.TrapArchive = append(in.TrapArchive, Trap{
				Provenance: prov,
				Type:       trap.Type,
				Question:   trap.Question,
				Reasoning:  trap.Reasoning,
			})
		}
	case *findings.ProductInsight:
		if in.PrimaryCustomer == "" {
			in.PrimaryCustomer = p.CustomerProfile
		}
		in.TargetCustomer = append(in.TargetCustomer, CustomerProfile{
			Provenance: prov,
			Profile:    p.CustomerProfile,
			Desire:     p.KeyDesire,
			Fear:       p.KeyFear,
		})
	case *findings.MarketingInsight:
		if in.CorePromise == "" {
			in.CorePromise = p.KeySellingPoint
		}
		in.MarketingAssets = append(in.MarketingAssets, Asset{
			Provenance: prov,
			Occasion:   "listing promise",
			Emotion:    p.CoreIdentity,
			Quote:      p.KeySellingPoint,
			Intent:     "positioning",
		})
	case *findings.GatekeeperSplit:
		in.CustomerReality = append(in.CustomerReality, RealityNote{
			Provenance: prov,
			Note: fmt.Sprintf("review sentiment split: %d positive, %d negative",
				p.PositiveCount, p.NegativeCount),
		})
	case *findings.HeroScenarioSet:
		for _, h := range p.Scenarios {
			in.MarketingAssets = append(in.MarketingAssets, Asset{
				Provenance: prov,
				Occasion:   h.Occasion,
				Emotion:    h.Emotion,
				Quote:      h.Quote,
				Intent:     h.Intent,
			})
		}
	case *findings.DealbreakerReport:
		for _, d := range p.Dealbreakers {
			in.ProductRisks = append(in.ProductRisks, Risk{
				Provenance: prov,
				Type:       d.Type,
				Issue:      d.Issue,
				Severity:   d.Severity,
				Quote:      d.Quote,
			})
		}
		for _, m := range p.MissingInfo {
			in.CustomerReality = append(in.CustomerReality, RealityNote{
				Provenance: prov,
				Note:       m.Question,
				Risk:       m.Risk,
			})
		}
	case *findings.GapAnalysis:
		for _, g := range p.Unaddressed {
			in.ListingGaps = append(in.ListingGaps, GapNote{
				Provenance: prov,
				Issue:      g.Issue,
				Priority:   g.Priority,
			})
		}
		for _, f := range p.FixSuggestions {
			in.ListingGaps = append(in.ListingGaps, GapNote{
				Provenance: prov,
				Issue:      f.Problem,
				Fix:        f.Fix,
			})
		}
		for _, s := range p.SEOFlags {
			in.ListingGaps = append(in.ListingGaps, GapNote{
				Provenance: prov,
				Issue:      s.Issue,
				Priority:   s.Severity,
				Fix:        s.Fix,
			})
		}
	}
}

// Stats sums the per-team counters for one run.
func Stats(results []teams.Result) teams.Stats {
	var total teams.Stats
	for _, res := range results {
		total.AgentsRun += res.Stats.AgentsRun
		total.AgentsOk += res.Stats.AgentsOk
		total.AgentsError += res.Stats.AgentsError
	}
	return total
}

// DefaultMinAgents is the floor below which a synthesis is produced with
// a prominent reliability warning.
const DefaultMinAgents = 2

// Decision is the run-level synthesis gate verdict.
type Decision struct {
	Synthesize bool        `json:"synthesize"`
	Warning    string      `json:"warning,omitempty"`
	Stats      teams.Stats `json:"stats"`
}

// Decide applies the synthesis gate: zero usable payloads means no
// synthesis call is spent, a thin harvest below minAgents still
// synthesizes but carries a warning.
func Decide(results []teams.Result, minAgents int) Decision {
	if minAgents <= 0 {
		minAgents = DefaultMinAgents
	}
	stats := Stats(results)
	d := Decision{Stats: stats}

	if stats.AgentsOk == 0 {
		return d
	}
	d.Synthesize = true
	if stats.AgentsOk < minAgents {
		d.Warning = fmt.Sprintf(
			"Only %d of %d agents produced usable intelligence; treat this strategy as preliminary.",
			stats.AgentsOk, stats.AgentsRun)
	}
	return d
}

// FailureReport renders the human-facing report for an aborted run: per
// team, which agents failed or were skipped and why. It replaces the
// synthesis output so the operator still gets a document.
func FailureReport(results []teams.Result) string {
	var b strings.Builder
	b.WriteString("# Analysis Failed\n\n")
	b.WriteString("No agent produced usable intelligence, so no strategy was synthesized.\n\n")

	for _, res := range results {
		fmt.Fprintf(&b, "## Team: %s\n\n", res.TeamName)
		if len(res.Outcomes) == 0 {
			b.WriteString("No agents configured.\n\n")
			continue
		}
		for _, out := range res.Outcomes {
			switch out.Status {
			case agents.StatusError:
				fmt.Fprintf(&b, "- **%s**: failed (%s)\n", out.AgentName, out.Error)
			case agents.StatusSkipped:
				fmt.Fprintf(&b, "- **%s**: skipped (%s)\n", out.AgentName, out.Error)
			default:
				fmt.Fprintf(&b, "- **%s**: %s\n", out.AgentName, out.Status)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Check the provider credentials and input texts, then run the analysis again.\n")
	return b.String()
}
