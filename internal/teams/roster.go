package teams

import (
	"strings"

	"github.com/meridianlab/listingintel/internal/findings"
	"github.com/meridianlab/listingintel/internal/prompts"
)

// Team names.
const (
	TeamAudit   = "audit"
	TeamReview  = "review"
	TeamListing = "listing"
)

// Agent names. Stable identifiers used for provenance tags, soft
// dependencies, and display.
const (
	AgentConversationAuditor  = "conversation-auditor"
	AgentConversationAnalyst  = "conversation-analyst"
	AgentListingAuditor       = "listing-auditor"
	AgentListingAnalyst       = "listing-analyst"
	AgentReviewGatekeeper     = "review-gatekeeper"
	AgentPositiveMapper       = "positive-mapper"
	AgentNegativeInvestigator = "negative-investigator"
	AgentGapAnalyst           = "gap-analyst"
	AgentStrategist           = "strategist"
)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// AuditTeam is the four-agent red/blue roster: two hostile auditors and
// two insight analysts over the conversation and listing texts.
func AuditTeam() []Task {
	part1Skip := func(rc *RunContext) string {
		if blank(rc.Input.Part1Context) {
			return "no conversation text provided"
		}
		return ""
	}
	part2Skip := func(rc *RunContext) string {
		if blank(rc.Input.Part2Text) {
			return "no listing info text provided"
		}
		return ""
	}
	part1Ctx := func(rc *RunContext) map[string]string {
		return map[string]string{"PART1_CONTEXT": rc.Input.Part1Context}
	}
	part2Ctx := func(rc *RunContext) map[string]string {
		return map[string]string{
			"PART2_TEXT": rc.Input.Part2Text,
			"PART2_TAGS": TagsLine(ExtractTags(rc.Input.Part2Text)),
		}
	}

	return []Task{
		{
			AgentName: AgentConversationAuditor,
			Template:  prompts.TplConversationAuditor,
			Decode:    findings.DecodeAuditorReport,
			Skip:      part1Skip,
			Context:   part1Ctx,
		},
		{
			AgentName: AgentConversationAnalyst,
			Template:  prompts.TplConversationAnalyst,
			Decode:    findings.DecodeProductInsight,
			Skip:      part1Skip,
			Context:   part1Ctx,
		},
		{
			AgentName: AgentListingAuditor,
			Template:  prompts.TplListingAuditor,
			Decode:    findings.DecodeAuditorReport,
			Skip:      part2Skip,
			Context:   part2Ctx,
		},
		{
			AgentName: AgentListingAnalyst,
			Template:  prompts.TplListingAnalyst,
			Decode:    findings.DecodeMarketingInsight,
			Skip:      part2Skip,
			Context:   part2Ctx,
		},
	}
}

// gatekeeperSplit fetches the gatekeeper's split buckets, if usable.
func gatekeeperSplit(rc *RunContext) *findings.GatekeeperSplit {
	out, ok := rc.Outcome(AgentReviewGatekeeper)
	if !ok || !out.Ok() {
		return nil
	}
	split, ok := out.Payload.(*findings.GatekeeperSplit)
	if !ok {
		return nil
	}
	return split
}

// ReviewTeam is the three-agent review roster. The gatekeeper partitions
// the raw review dump; the positive mapper and negative investigator are
// soft-dependent on its split text.
func ReviewTeam() []Task {
	return []Task{
		{
			AgentName: AgentReviewGatekeeper,
			Template:  prompts.TplReviewGatekeeper,
			Decode:    findings.DecodeGatekeeperSplit,
			Skip: func(rc *RunContext) string {
				if blank(rc.Input.RawReviews) {
					return "no review text provided"
				}
				return ""
			},
			Context: func(rc *RunContext) map[string]string {
				return map[string]string{"RAW_REVIEWS": rc.Input.RawReviews}
			},
		},
		{
			AgentName: AgentPositiveMapper,
			Template:  prompts.TplReviewPositive,
			Decode:    findings.DecodeHeroScenarioSet,
			Requires:  AgentReviewGatekeeper,
			Skip: func(rc *RunContext) string {
				if split := gatekeeperSplit(rc); split == nil || blank(split.PositiveText) {
					return "gatekeeper found no positive reviews"
				}
				return ""
			},
			Context: func(rc *RunContext) map[string]string {
				split := gatekeeperSplit(rc)
				return map[string]string{"POSITIVE_TEXT": split.PositiveText}
			},
		},
		{
			AgentName: AgentNegativeInvestigator,
			Template:  prompts.TplReviewNegative,
			Decode:    findings.DecodeDealbreakerReport,
			Requires:  AgentReviewGatekeeper,
			Skip: func(rc *RunContext) string {
				if split := gatekeeperSplit(rc); split == nil || blank(split.NegativeText) {
					return "gatekeeper found no negative reviews"
				}
				return ""
			},
			Context: func(rc *RunContext) map[string]string {
				split := gatekeeperSplit(rc)
				return map[string]string{"NEGATIVE_TEXT": split.NegativeText}
			},
		},
	}
}

// ListingTeam is the single-agent gap analysis roster. Its context folds
// the findings of every earlier team into one digest.
func ListingTeam() []Task {
	return []Task{
		{
			AgentName: AgentGapAnalyst,
			Template:  prompts.TplListingGapAnalyst,
			Decode:    findings.DecodeGapAnalysis,
			Skip: func(rc *RunContext) string {
				in := rc.Input
				if blank(in.ListingTitle) && blank(in.ListingBullets) && blank(in.ListingAPlus) {
					return "no listing content provided"
				}
				return ""
			},
			Context: func(rc *RunContext) map[string]string {
				in := rc.Input
				return map[string]string{
					"LISTING_TITLE":   orPlaceholder(in.ListingTitle, "(no title provided)"),
					"LISTING_BULLETS": orPlaceholder(in.ListingBullets, "(no bullets provided)"),
					"LISTING_APLUS":   orPlaceholder(in.ListingAPlus, "(no enhanced content provided)"),
					"PRODUCT_DETAILS": orPlaceholder(in.ProductDetails, "(no product details provided)"),
					"APLUS_STATUS":    orPlaceholder(in.APlusStatus, "Standard Text Modules"),
					"ALL_FINDINGS":    FindingsDigest(rc),
				}
			},
		},
	}
}

func orPlaceholder(s, placeholder string) string {
	if blank(s) {
		return placeholder
	}
	return s
}
