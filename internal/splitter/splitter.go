// Package splitter separates a model's reasoning from its final image prompt.
package splitter

import (
	"errors"
	"regexp"
	"strings"
)

// MarkerLabel introduces the final prompt in a model response.
const MarkerLabel = "Prompt:"

// NoReasoning is reported when the response has no marker line.
const NoReasoning = "[Brak szczegółowego rozumowania]"

// ErrEmptyPrompt means nothing usable remained after splitting and cleanup.
var ErrEmptyPrompt = errors.New("empty final prompt")

var (
	markerRe         = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(MarkerLabel))
	markdownStripper = strings.NewReplacer("```", "", "*", "")
)

// Parsed is the result of splitting a model response.
type Parsed struct {
	Reasoning   string
	FinalPrompt string
}

// Split finds the first line containing the marker label (case-insensitive).
// Everything before that line is reasoning; that line onward, with every
// occurrence of the label removed, is the prompt. Without a marker the whole
// text is the prompt. Markdown emphasis and code fences are stripped from the
// prompt; an empty result yields ErrEmptyPrompt.
func Split(raw string) (Parsed, error) {
	lines := strings.Split(raw, "\n")

	parsed := Parsed{
		Reasoning:   NoReasoning,
		FinalPrompt: strings.TrimSpace(raw),
	}

	if i := markerLine(lines); i >= 0 {
		parsed.Reasoning = strings.TrimSpace(strings.Join(lines[:i], "\n"))
		rest := strings.Join(lines[i:], "\n")
		parsed.FinalPrompt = strings.TrimSpace(markerRe.ReplaceAllString(rest, ""))
	}

	parsed.FinalPrompt = Clean(parsed.FinalPrompt)
	if parsed.FinalPrompt == "" {
		return parsed, ErrEmptyPrompt
	}
	return parsed, nil
}

// Clean strips markdown emphasis and code-fence markers and trims whitespace.
func Clean(s string) string {
	return strings.TrimSpace(markdownStripper.Replace(s))
}

// markerLine returns the index of the first line holding the marker, or -1.
func markerLine(lines []string) int {
	for i, line := range lines {
		if markerRe.MatchString(line) {
			return i
		}
	}
	return -1
}
