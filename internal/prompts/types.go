package prompts

import (
	"fmt"
	"strings"
)

// Template is a named prompt body with literal __TOKEN__ placeholders.
// Bodies frequently embed literal JSON examples; those braces are plain
// text and must never be interpreted by any substitution mechanism.
type Template struct {
	Name           string   `yaml:"name"`
	Body           string   `yaml:"body"`
	RequiredTokens []string `yaml:"required_tokens"`
}

// Marker returns the placeholder form of a token name, e.g. "__PART1_CONTEXT__".
func Marker(token string) string {
	return "__" + strings.ToUpper(token) + "__"
}

// Validate checks that the body actually carries every declared token marker.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template has no name")
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("template %q has an empty body", t.Name)
	}
	for _, token := range t.RequiredTokens {
		if !strings.Contains(t.Body, Marker(token)) {
			return fmt.Errorf("template %q is missing marker %s", t.Name, Marker(token))
		}
	}
	return nil
}
