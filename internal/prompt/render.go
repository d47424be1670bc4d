package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// TemplateData is what a system prompt template can reference.
type TemplateData struct {
	Style      Style
	StyleLabel string
	StyleRule  string
	PromptLead string
}

// DataFor builds the template data for a style.
func DataFor(style Style) TemplateData {
	spec := style.spec()
	return TemplateData{
		Style:      style,
		StyleLabel: spec.Label,
		StyleRule:  spec.Rule,
		PromptLead: spec.Lead,
	}
}

// RenderSystemPrompt executes tmpl as a text/template with the style data.
// A user-edited template without any actions is returned unchanged.
func RenderSystemPrompt(tmpl string, style Style) (string, error) {
	if !style.Valid() {
		return "", fmt.Errorf("render system prompt: unknown style %q", style)
	}

	t, err := template.New("system").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse system prompt: %w", err)
	}

	var sb strings.Builder
	if err := t.Execute(&sb, DataFor(style)); err != nil {
		return "", fmt.Errorf("execute system prompt: %w", err)
	}
	return sb.String(), nil
}

// UserMessage formats the paragraph sent alongside the system instruction.
func UserMessage(text string) string {
	return fmt.Sprintf(UserMessageFormat, text)
}

// FallbackPrompt builds the simplified single-description request.
func FallbackPrompt(text string, style Style) string {
	spec := style.spec()
	return fmt.Sprintf(FallbackPromptFormat, text, spec.Descriptor, spec.Lead)
}
