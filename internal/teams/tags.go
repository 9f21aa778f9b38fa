package teams

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	tagSplitRe    = regexp.MustCompile(`[,\n]`)
	markdownLead  = regexp.MustCompile(`^[-*#>]+\s*`)
	boldMarkersRe = regexp.MustCompile(`\*\*`)
)

// maxTagLen bounds what still counts as a short tag phrase.
const maxTagLen = 40

// ExtractTags pulls short tag phrases out of listing text: split on
// commas and newlines, strip markdown artifacts, keep phrases under 40
// characters that do not end with a period. Returns sorted unique tags.
func ExtractTags(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	for _, line := range tagSplitRe.Split(text, -1) {
		cleaned := strings.TrimSpace(line)
		cleaned = markdownLead.ReplaceAllString(cleaned, "")
		cleaned = boldMarkersRe.ReplaceAllString(cleaned, "")

		if cleaned == "" || utf8.RuneCountInString(cleaned) >= maxTagLen || strings.HasSuffix(cleaned, ".") {
			continue
		}
		seen[cleaned] = struct{}{}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// TagsLine renders tags for prompt hydration.
func TagsLine(tags []string) string {
	if len(tags) == 0 {
		return "(no tags detected)"
	}
	return strings.Join(tags, ", ")
}
