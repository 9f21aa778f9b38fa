// Package recovery turns raw model output into a structured record.
// Model responses are frequently almost-JSON: fenced, missing the outer
// braces, carrying trailing commas, or using Python literal spellings.
// The parser applies strictly increasing-leniency stages and always
// returns a usable value; exhaustion is reported as data, never as an
// error that escapes this boundary.
package recovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/meridianlab/listingintel/internal/metrics"
)

// Stage identifies which decode stage produced the payload.
type Stage string

const (
	StageStrict    Stage = "strict"
	StageBraceWrap Stage = "brace_wrap"
	StageLiteral   Stage = "literal"
	StageExtract   Stage = "extract"
	StageFallback  Stage = "fallback"
)

// Result is the outcome of one recovery attempt. Degraded means every
// stage failed and Payload is the safe skeleton; Excerpt then carries a
// bounded slice of the raw text for human inspection.
type Result struct {
	Payload  map[string]any
	Stage    Stage
	Degraded bool
	Excerpt  string
}

// maxExcerpt bounds the raw-text excerpt kept on degraded results.
const maxExcerpt = 1000

var (
	fenceOpenRe   = regexp.MustCompile("(?i)^```[a-z]*[ \t]*\r?\n?")
	fenceCloseRe  = regexp.MustCompile("```\\s*$")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	pyTrue        = regexp.MustCompile(`\bTrue\b`)
	pyFalse       = regexp.MustCompile(`\bFalse\b`)
	pyNone        = regexp.MustCompile(`\bNone\b`)
)

// Recover decodes raw into a map, trying each stage in order. It never
// panics and never returns a nil payload.
func Recover(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		metrics.RecoveryDegraded.Inc()
		return Result{
			Payload:  skeleton(),
			Stage:    StageFallback,
			Degraded: true,
			Excerpt:  "(empty response)",
		}
	}

	// Stage 1: strip markdown fences and surrounding whitespace.
	cleaned := stripFences(raw)

	// Stage 2: remove trailing commas before a closing brace/bracket.
	fixed := trailingComma.ReplaceAllString(cleaned, "$1")

	// Stage 3: strict decode.
	for _, text := range candidates(fixed, cleaned) {
		if m, ok := tryDecode(text); ok {
			return win(m, StageStrict)
		}
	}

	// Stage 4: wrap in outer braces; recovers output that omitted the
	// envelope entirely.
	for _, text := range candidates(fixed, cleaned) {
		if m, ok := tryDecode("{" + text + "}"); ok {
			return win(m, StageBraceWrap)
		}
	}

	// Stage 5: permissive literal decode. Normalize Python-style
	// booleans/null (and single-quoted strings when the text has no
	// double quotes at all) back to wire form, then retry.
	for _, text := range candidates(fixed, cleaned) {
		normalized := normalizeLiterals(text)
		if m, ok := tryDecode(normalized); ok {
			return win(m, StageLiteral)
		}
		if m, ok := tryDecode("{" + normalized + "}"); ok {
			return win(m, StageLiteral)
		}
	}

	// Stage 6: last resort, decode the first-{..last-} substring only;
	// recovers output with leading or trailing prose.
	if first, last := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); first != -1 && last > first {
		sub := trailingComma.ReplaceAllString(cleaned[first:last+1], "$1")
		if m, ok := tryDecode(sub); ok {
			return win(m, StageExtract)
		}
	}

	metrics.RecoveryDegraded.Inc()
	return Result{
		Payload:  skeleton(),
		Stage:    StageFallback,
		Degraded: true,
		Excerpt:  truncate(cleaned, maxExcerpt),
	}
}

func win(m map[string]any, s Stage) Result {
	metrics.RecoveryStageWins.WithLabelValues(string(s)).Inc()
	return Result{Payload: m, Stage: s}
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = fenceOpenRe.ReplaceAllString(cleaned, "")
	cleaned = fenceCloseRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// candidates yields the repaired text first, then the original when they
// differ, so the comma repair cannot mask an already-valid document.
func candidates(fixed, cleaned string) []string {
	if fixed == cleaned {
		return []string{cleaned}
	}
	return []string{fixed, cleaned}
}

func tryDecode(text string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func normalizeLiterals(text string) string {
	out := pyTrue.ReplaceAllString(text, "true")
	out = pyFalse.ReplaceAllString(out, "false")
	out = pyNone.ReplaceAllString(out, "null")
	// Single-quoted output only: swap the quote style wholesale. Mixed
	// quoting is left alone since a blind swap would corrupt strings.
	if !strings.Contains(out, `"`) && strings.Contains(out, "'") {
		out = strings.ReplaceAll(out, "'", `"`)
	}
	return out
}

// skeleton returns the safe fallback payload. Downstream consumers index
// into it without nil checks, so the shape mirrors an empty auditor
// response.
func skeleton() map[string]any {
	return map[string]any{
		"auditor_report": map[string]any{
			"trap_questions": []any{},
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
