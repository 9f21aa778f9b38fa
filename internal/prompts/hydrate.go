package prompts

import "strings"

// Hydrate fills template placeholders from ctx using literal substring
// replacement. For every token in ctx, each occurrence of its __TOKEN__
// marker is replaced with the value. Markers without a ctx entry are left
// in place (partial hydration is legal), and non-marker text, including
// braces inside embedded JSON examples, passes through byte for byte.
//
// A format-string engine is deliberately not used here: such engines treat
// braces as syntax and would require escaping the example JSON embedded in
// the prompt bodies.
func Hydrate(t *Template, ctx map[string]string) string {
	body := t.Body
	for token, value := range ctx {
		body = strings.ReplaceAll(body, Marker(token), value)
	}
	return body
}

// MissingTokens reports which required tokens of t have no entry in ctx.
func MissingTokens(t *Template, ctx map[string]string) []string {
	var missing []string
	for _, token := range t.RequiredTokens {
		if _, ok := ctx[token]; !ok {
			missing = append(missing, token)
		}
	}
	return missing
}
