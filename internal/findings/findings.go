// Package findings defines the typed result records produced by each
// agent family. Agents answer in JSON envelopes; decoding the recovered
// map into these types surfaces shape mismatches as decode errors instead
// of runtime map lookups scattered across the pipeline.
package findings

import (
	"encoding/json"
	"fmt"
)

// Payload is implemented by every typed agent result.
type Payload interface {
	Kind() string
}

// Freeform carries an agent answer that is consumed as prose, not
// decoded (the synthesizer's markdown report).
type Freeform struct {
	Text string `json:"text"`
}

func (*Freeform) Kind() string { return "freeform" }

// TrapQuestion is a single hostile question from an auditor agent.
type TrapQuestion struct {
	Type      string `json:"type"`
	Question  string `json:"question"`
	Reasoning string `json:"reasoning"`
}

// AuditorReport is the red-team output: weaknesses and trap questions.
type AuditorReport struct {
	WeaknessFound string         `json:"weakness_found"`
	TrapQuestions []TrapQuestion `json:"trap_questions"`
}

func (*AuditorReport) Kind() string { return "auditor_report" }

// InsightQuestion is a validation/confirmation question from an analyst.
type InsightQuestion struct {
	Type          string `json:"type"`
	Question      string `json:"question"`
	InsightOrigin string `json:"insight_origin"`
}

// ProductInsight is the blue-team conversation output: who the customer
// is and what they want and fear.
type ProductInsight struct {
	CustomerProfile     string            `json:"customer_profile"`
	KeyDesire           string            `json:"key_desire"`
	KeyFear             string            `json:"key_fear"`
	ValidationQuestions []InsightQuestion `json:"validation_questions"`
}

func (*ProductInsight) Kind() string { return "product_insight" }

// MarketingInsight is the blue-team listing output: the promised
// experience the listing sells.
type MarketingInsight struct {
	CoreIdentity          string            `json:"core_identity"`
	KeySellingPoint       string            `json:"key_selling_point"`
	ConfirmationQuestions []InsightQuestion `json:"confirmation_questions"`
}

func (*MarketingInsight) Kind() string { return "marketing_insight" }

// GatekeeperSplit is the review classifier output: raw review text
// partitioned into positive and negative buckets.
type GatekeeperSplit struct {
	PositiveCount int    `json:"positive_count"`
	NegativeCount int    `json:"negative_count"`
	PositiveText  string `json:"positive_text"`
	NegativeText  string `json:"negative_text"`
}

func (*GatekeeperSplit) Kind() string { return "gatekeeper" }

// HeroScenario is one positive real-world usage story.
type HeroScenario struct {
	Occasion string `json:"occasion"`
	Emotion  string `json:"emotion"`
	Quote    string `json:"quote"`
	Intent   string `json:"intent"`
}

// HeroScenarioSet is the positive-review mapper output.
type HeroScenarioSet struct {
	Scenarios []HeroScenario `json:"hero_scenarios"`
}

func (*HeroScenarioSet) Kind() string { return "hero_scenarios" }

// Dealbreaker is a product failure severe enough to lose the sale.
type Dealbreaker struct {
	Type     string `json:"type"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
	Quote    string `json:"quote"`
}

// MissingInfo is a customer question the listing never answers.
type MissingInfo struct {
	Question string `json:"question"`
	Status   string `json:"status"`
	Risk     string `json:"risk"`
}

// DealbreakerReport is the negative-review investigator output.
type DealbreakerReport struct {
	Dealbreakers []Dealbreaker `json:"dealbreakers"`
	MissingInfo  []MissingInfo `json:"missing_info"`
}

func (*DealbreakerReport) Kind() string { return "dealbreaker_report" }

// AddressedGap is a complaint the listing already covers.
type AddressedGap struct {
	Issue           string `json:"issue"`
	ListingEvidence string `json:"listing_evidence"`
}

// UnaddressedGap is a complaint the listing ignores.
type UnaddressedGap struct {
	Issue    string `json:"issue"`
	Source   string `json:"source"`
	Priority string `json:"priority"`
}

// FixSuggestion is a concrete listing rewrite closing a gap.
type FixSuggestion struct {
	Target  string `json:"target"`
	Problem string `json:"problem"`
	Fix     string `json:"fix"`
}

// SEOFlag is a search-visibility defect in the listing.
type SEOFlag struct {
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
	Risk     string `json:"risk"`
	Fix      string `json:"fix"`
}

// GapAnalysis is the listing-gap analyst output.
type GapAnalysis struct {
	CoverageScore  int              `json:"coverage_score"`
	Addressed      []AddressedGap   `json:"addressed"`
	Unaddressed    []UnaddressedGap `json:"unaddressed"`
	FixSuggestions []FixSuggestion  `json:"fix_suggestions"`
	SEOFlags       []SEOFlag        `json:"seo_flags"`
}

func (*GapAnalysis) Kind() string { return "gap_analysis" }

// reshape round-trips a recovered map through JSON into dst, so the
// struct tags define the accepted shape.
func reshape(m map[string]any, dst any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("reshape marshal: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("reshape unmarshal: %w", err)
	}
	return nil
}

// envelope pulls the named sub-object out of a recovered map.
func envelope(m map[string]any, key string) (map[string]any, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("response has no %q envelope", key)
	}
	inner, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%q envelope is %T, not an object", key, raw)
	}
	return inner, nil
}

// DecodeAuditorReport decodes an {"auditor_report": {...}} response.
func DecodeAuditorReport(m map[string]any) (Payload, error) {
	inner, err := envelope(m, "auditor_report")
	if err != nil {
		return nil, err
	}
	var r AuditorReport
	if err := reshape(inner, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeProductInsight decodes a {"product_insight": {...}} response.
func DecodeProductInsight(m map[string]any) (Payload, error) {
	inner, err := envelope(m, "product_insight")
	if err != nil {
		return nil, err
	}
	var r ProductInsight
	if err := reshape(inner, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeMarketingInsight decodes a {"marketing_insight": {...}} response.
func DecodeMarketingInsight(m map[string]any) (Payload, error) {
	inner, err := envelope(m, "marketing_insight")
	if err != nil {
		return nil, err
	}
	var r MarketingInsight
	if err := reshape(inner, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeGatekeeperSplit decodes a {"gatekeeper": {...}} response.
func DecodeGatekeeperSplit(m map[string]any) (Payload, error) {
	inner, err := envelope(m, "gatekeeper")
	if err != nil {
		return nil, err
	}
	var r GatekeeperSplit
	if err := reshape(inner, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeHeroScenarioSet decodes a {"hero_scenarios": [...]} response.
// The list lives at the top level of the envelope.
func DecodeHeroScenarioSet(m map[string]any) (Payload, error) {
	if _, ok := m["hero_scenarios"]; !ok {
		return nil, fmt.Errorf(`response has no "hero_scenarios" list`)
	}
	var r HeroScenarioSet
	if err := reshape(m, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeDealbreakerReport decodes a {"dealbreakers": [...], "missing_info": [...]}
// response. Both lists live at the top level.
func DecodeDealbreakerReport(m map[string]any) (Payload, error) {
	_, hasDeals := m["dealbreakers"]
	_, hasMissing := m["missing_info"]
	if !hasDeals && !hasMissing {
		return nil, fmt.Errorf(`response has neither "dealbreakers" nor "missing_info"`)
	}
	var r DealbreakerReport
	if err := reshape(m, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeGapAnalysis decodes a {"gap_analysis": {...}} response.
func DecodeGapAnalysis(m map[string]any) (Payload, error) {
	inner, err := envelope(m, "gap_analysis")
	if err != nil {
		return nil, err
	}
	var r GapAnalysis
	if err := reshape(inner, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
