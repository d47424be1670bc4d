// Package pipeline turns a Polish ETR paragraph into an image prompt and an
// image, and hands the rated result to the feedback recorder.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abdulachik/etrimage/internal/health"
	"github.com/abdulachik/etrimage/internal/metrics"
	"github.com/abdulachik/etrimage/internal/prompt"
	"github.com/abdulachik/etrimage/internal/splitter"
)

// Config holds the collaborators shared by every session.
type Config struct {
	Text      TextCompleter
	Renderers []ImageRenderer
	Recorder  FeedbackRecorder

	// FallbackTemperature is used for the simplified prompt. Zero selects
	// DefaultFallbackTemperature.
	FallbackTemperature float64

	// Unavailable, when set, explains why generation cannot run (usually a
	// missing API key). Submissions fail with ConfigMissing.
	Unavailable error

	Metrics *metrics.Metrics
	Health  *health.Health
}

// Pipeline sequences text analysis, prompt splitting and rendering.
type Pipeline struct {
	text        TextCompleter
	renderers   []ImageRenderer
	recorder    FeedbackRecorder
	fallbackTmp float64
	unavailable error
	metrics     *metrics.Metrics
	health      *health.Health
}

// New creates a pipeline from cfg.
func New(cfg Config) *Pipeline {
	fallback := cfg.FallbackTemperature
	if fallback == 0 {
		fallback = DefaultFallbackTemperature
	}
	return &Pipeline{
		text:        cfg.Text,
		renderers:   cfg.Renderers,
		recorder:    cfg.Recorder,
		fallbackTmp: fallback,
		unavailable: cfg.Unavailable,
		metrics:     cfg.Metrics,
		health:      cfg.Health,
	}
}

// Strategies returns the renderer names in the order they are tried.
func (p *Pipeline) Strategies() []string {
	names := make([]string, len(p.renderers))
	for i, r := range p.renderers {
		names[i] = r.Name()
	}
	return names
}

// prepare validates req and renders its system instruction.
func (p *Pipeline) prepare(req GenerationRequest) (string, error) {
	if p.unavailable != nil {
		return "", &Error{Kind: ConfigMissing, Op: "generate", Err: p.unavailable, Hint: hintConfig}
	}
	if p.text == nil {
		return "", &Error{Kind: ConfigMissing, Op: "generate", Err: errors.New("no text model configured"), Hint: hintConfig}
	}
	if len(p.renderers) == 0 {
		return "", &Error{Kind: ConfigMissing, Op: "generate", Err: errors.New("no image renderer configured"), Hint: hintConfig}
	}
	if err := req.Validate(); err != nil {
		return "", &Error{Kind: ValidationError, Op: "validate request", Err: err, Hint: hintValidation}
	}

	system, err := prompt.RenderSystemPrompt(req.template(), req.Style)
	if err != nil {
		return "", &Error{Kind: ValidationError, Op: "validate request", Err: err, Hint: "fix the template syntax in the system prompt"}
	}
	return system, nil
}

// analyze asks the text model for a prompt. When the primary call fails or
// splits to nothing, the simplified fallback request is sent exactly once.
func (p *Pipeline) analyze(ctx context.Context, req GenerationRequest, system string) (splitter.Parsed, bool, error) {
	resp := p.complete(ctx, metrics.StageAnalysis, system, prompt.UserMessage(req.SourceText), req.TextTemperature)

	var primaryErr error
	if resp.Succeeded {
		parsed, err := splitter.Split(resp.Text)
		if err == nil {
			return parsed, false, nil
		}
		primaryErr = err
		slog.Warn("model response held no usable prompt", "stage", metrics.StageAnalysis, "raw_length", len(resp.Text))
	} else {
		primaryErr = resp.Err
	}

	slog.Info("trying fallback prompt", "reason", primaryErr)
	fallback := p.complete(ctx, metrics.StageFallback, "", prompt.FallbackPrompt(req.SourceText, req.Style), p.fallbackTmp)
	if !fallback.Succeeded {
		return splitter.Parsed{}, false, &Error{
			Kind: ServiceCallFailed,
			Op:   "analyze text",
			Err:  errors.Join(primaryErr, fmt.Errorf("fallback: %w", fallback.Err)),
			Hint: hintAnalysis,
		}
	}

	text := strings.TrimSpace(fallback.Text)
	if text == "" {
		return splitter.Parsed{}, false, &Error{
			Kind: EmptyResponse,
			Op:   "analyze text",
			Err:  errors.Join(primaryErr, errors.New("fallback returned empty text")),
			Hint: hintEmpty,
		}
	}

	return splitter.Parsed{Reasoning: FallbackReasoning, FinalPrompt: text}, true, nil
}

func (p *Pipeline) complete(ctx context.Context, stage, system, user string, temperature float64) ModelResponse {
	start := time.Now()
	text, err := p.text.Complete(ctx, system, user, temperature)
	elapsed := time.Since(start)

	if err != nil {
		p.metrics.ObserveCall(stage, metrics.StatusError, elapsed)
		p.health.SetUnhealthy(health.TextModel, err)
		slog.Error("text model call failed", "stage", stage, "error", err, "elapsed", elapsed)
		return ModelResponse{Err: err}
	}

	p.metrics.ObserveCall(stage, metrics.StatusOK, elapsed)
	p.health.SetHealthy(health.TextModel, stage+" ok")
	slog.Debug("text model call succeeded", "stage", stage, "elapsed", elapsed, "length", len(text))
	return ModelResponse{Text: text, Succeeded: true}
}

// render tries each renderer in order until one returns image bytes.
func (p *Pipeline) render(ctx context.Context, finalPrompt string, req GenerationRequest) (*RenderedImage, error) {
	rr := RenderRequest{
		Prompt:      finalPrompt,
		Style:       req.Style,
		Temperature: req.ImageTemperature,
	}

	var errs []error
	for i, r := range p.renderers {
		start := time.Now()
		data, err := r.Render(ctx, rr)
		elapsed := time.Since(start)
		if err == nil && len(data) == 0 {
			err = ErrEmptyImage
		}

		if err != nil {
			status := metrics.StatusError
			if errors.Is(err, ErrEmptyImage) {
				status = metrics.StatusEmpty
			}
			p.metrics.ObserveCall(metrics.StageRender, status, elapsed)
			if i == 0 {
				p.health.SetUnhealthy(health.ImageModel, err)
			}
			slog.Warn("renderer failed", "strategy", r.Name(), "error", err, "elapsed", elapsed)
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
			continue
		}

		p.metrics.ObserveCall(metrics.StageRender, metrics.StatusOK, elapsed)
		p.metrics.Rendered(r.Name())
		if i == 0 {
			p.health.SetHealthy(health.ImageModel, r.Name())
		}
		slog.Info("image rendered", "strategy", r.Name(), "bytes", len(data), "elapsed", elapsed)
		return &RenderedImage{Data: data, MIMEType: PNGMimeType, Strategy: r.Name()}, nil
	}

	return nil, &Error{
		Kind: ServiceCallFailed,
		Op:   "render image",
		Err:  errors.Join(errs...),
		Hint: hintRender,
	}
}
