package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdulachik/etrimage/internal/feedback"
	"github.com/abdulachik/etrimage/internal/prompt"
)

// FallbackReasoning replaces the reasoning when the fallback prompt was used.
const FallbackReasoning = "[Fallback - uproszczony prompt]"

// DefaultFallbackTemperature is used for the single fallback invocation.
const DefaultFallbackTemperature = 0.5

// PNGMimeType is the only image format the pipeline hands out.
const PNGMimeType = "image/png"

// TextCompleter sends a system instruction and a user message to a language
// model. An empty system instruction means none is sent.
type TextCompleter interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// RenderRequest is what an image renderer receives.
type RenderRequest struct {
	Prompt      string
	Style       prompt.Style
	Temperature float64
}

// ImageRenderer turns a prompt into PNG bytes.
type ImageRenderer interface {
	Name() string
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}

// FeedbackRecorder persists a rated image.
type FeedbackRecorder interface {
	Record(ctx context.Context, entry feedback.Entry, image []byte) (feedback.Record, error)
}

// GenerationRequest is one submission from the user.
type GenerationRequest struct {
	SourceText string
	// SystemPrompt is a text/template; blank selects prompt.DefaultSystemPrompt.
	SystemPrompt     string
	Style            prompt.Style
	TextTemperature  float64
	ImageTemperature float64
}

// Validate checks the request without contacting any service.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.SourceText) == "" {
		return ErrEmptyText
	}
	if r.TextTemperature < 0 || r.TextTemperature > 1 {
		return fmt.Errorf("text temperature %.2f outside [0, 1]", r.TextTemperature)
	}
	if r.ImageTemperature < 0 || r.ImageTemperature > 1 {
		return fmt.Errorf("image temperature %.2f outside [0, 1]", r.ImageTemperature)
	}
	if !r.Style.Valid() {
		return fmt.Errorf("unknown style %q", r.Style)
	}
	return nil
}

func (r GenerationRequest) template() string {
	if strings.TrimSpace(r.SystemPrompt) == "" {
		return prompt.DefaultSystemPrompt
	}
	return r.SystemPrompt
}

// ModelResponse is the outcome of one model invocation.
type ModelResponse struct {
	Text      string
	Succeeded bool
	Err       error
}

// RenderedImage is an image produced for the session.
type RenderedImage struct {
	Data     []byte
	MIMEType string
	// Strategy is the Name of the renderer that produced the image.
	Strategy string
}

// Artifacts are what a submission produced so far.
type Artifacts struct {
	Request GenerationRequest
	// SystemPromptUsed is the rendered instruction sent to the model.
	SystemPromptUsed string
	Reasoning        string
	FinalPrompt      string
	UsedFallback     bool
	Image            *RenderedImage
}

// HasImage reports whether an image is available.
func (a Artifacts) HasImage() bool {
	return a.Image != nil && len(a.Image.Data) > 0
}
