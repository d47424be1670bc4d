package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/abdulachik/etrimage/internal/llm"
	"github.com/abdulachik/etrimage/internal/pipeline"
	"google.golang.org/genai"
)

const defaultImageModel = "gemini-2.5-flash-image"

// ErrNoImage is returned when the model answered without image data.
var ErrNoImage = errors.New("no image returned by model")

// Gemini renders prompts with a Gemini image model.
type Gemini struct {
	models llm.ContentGenerator
	model  string
}

// NewGemini wraps a content generator, usually client.Models.
func NewGemini(models llm.ContentGenerator, model string) *Gemini {
	if model == "" {
		model = defaultImageModel
	}
	return &Gemini{models: models, model: model}
}

func (g *Gemini) Name() string {
	return "gemini"
}

// Render requests IMAGE output for req.Prompt and returns the first inline
// image, converted to PNG when needed.
func (g *Gemini) Render(ctx context.Context, req pipeline.RenderRequest) ([]byte, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage)},
		Temperature:        genai.Ptr(float32(req.Temperature)),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate image: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return nil, ErrNoImage
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				if part.InlineData.MIMEType != pipeline.PNGMimeType {
					slog.Debug("converting image to png", "mime_type", part.InlineData.MIMEType)
				}
				return ToPNG(part.InlineData.Data)
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}

	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("image generation stopped: %s", candidate.FinishReason)
	}
	if s := strings.TrimSpace(text.String()); s != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoImage, truncate(s, maxReplyRunes))
	}
	return nil, ErrNoImage
}

const maxReplyRunes = 200

// truncate shortens s to at most n runes, keeping the result valid UTF-8.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
