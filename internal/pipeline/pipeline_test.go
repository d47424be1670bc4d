package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdulachik/etrimage/internal/feedback"
	"github.com/abdulachik/etrimage/internal/health"
	"github.com/abdulachik/etrimage/internal/metrics"
	"github.com/abdulachik/etrimage/internal/prompt"
	"github.com/abdulachik/etrimage/internal/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const busText = "Mężczyzna wchodzi do autobusu."

var pngData = []byte("\x89PNG\r\n\x1a\nimage")

type fixture struct {
	text        *mockText
	primary     *mockRenderer
	placeholder *mockRenderer
	recorder    *mockRecorder
	health      *health.Health
	session     *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		text:        &mockText{},
		primary:     &mockRenderer{name: "gemini"},
		placeholder: &mockRenderer{name: "placeholder"},
		recorder:    &mockRecorder{},
		health:      health.New(),
	}
	p := New(Config{
		Text:      f.text,
		Renderers: []ImageRenderer{f.primary, f.placeholder},
		Recorder:  f.recorder,
		Metrics:   metrics.New(),
		Health:    f.health,
	})
	f.session = p.NewSession()
	return f
}

func busRequest() GenerationRequest {
	return GenerationRequest{
		SourceText:       busText,
		Style:            prompt.StylePhotographic,
		TextTemperature:  0.6,
		ImageTemperature: 0.4,
	}
}

func TestSession_Submit_BusScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.text.On("Complete", ctx, withSystem, prompt.UserMessage(busText), 0.6).
		Return("KROK1: ...\nKROK2: ...\nPrompt: A photorealistic photo of a man boarding a bus.", nil).Once()
	f.primary.On("Render", ctx, RenderRequest{
		Prompt:      "A photorealistic photo of a man boarding a bus.",
		Style:       prompt.StylePhotographic,
		Temperature: 0.4,
	}).Return(pngData, nil).Once()

	art, err := f.session.Submit(ctx, busRequest())
	require.NoError(t, err)

	assert.Equal(t, "KROK1: ...\nKROK2: ...", art.Reasoning)
	assert.Equal(t, "A photorealistic photo of a man boarding a bus.", art.FinalPrompt)
	assert.False(t, art.UsedFallback)
	require.True(t, art.HasImage())
	assert.Equal(t, "gemini", art.Image.Strategy)
	assert.Equal(t, PNGMimeType, art.Image.MIMEType)
	assert.Contains(t, art.SystemPromptUsed, "A photorealistic photo of")

	assert.Equal(t, AwaitingFeedback, f.session.State())
	assert.Equal(t, []State{AnalyzingText, PromptReady, RenderingImage, ImageReady, AwaitingFeedback}, f.session.Transitions())

	f.text.AssertExpectations(t)
	f.primary.AssertExpectations(t)
	f.placeholder.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
	assert.True(t, f.health.Get(health.TextModel).Healthy)
	assert.True(t, f.health.Get(health.ImageModel).Healthy)
}

func TestSession_Submit_NoMarker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("A simple photo of a bus stop.", nil).Once()
	f.primary.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()

	art, err := f.session.Submit(ctx, busRequest())
	require.NoError(t, err)

	assert.Equal(t, splitter.NoReasoning, art.Reasoning)
	assert.Equal(t, "A simple photo of a bus stop.", art.FinalPrompt)
}

func TestSession_Submit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*GenerationRequest)
	}{
		{name: "empty text", modify: func(r *GenerationRequest) { r.SourceText = "" }},
		{name: "whitespace text", modify: func(r *GenerationRequest) { r.SourceText = " \n\t " }},
		{name: "text temperature too high", modify: func(r *GenerationRequest) { r.TextTemperature = 1.5 }},
		{name: "image temperature negative", modify: func(r *GenerationRequest) { r.ImageTemperature = -0.1 }},
		{name: "unknown style", modify: func(r *GenerationRequest) { r.Style = "watercolor" }},
		{name: "broken template", modify: func(r *GenerationRequest) { r.SystemPrompt = "{{.StyleRule" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := busRequest()
			tt.modify(&req)

			_, err := f.session.Submit(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, ValidationError, KindOf(err))
			assert.NotEmpty(t, HintOf(err))

			assert.Equal(t, Idle, f.session.State())
			assert.Empty(t, f.session.Transitions())
			f.text.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("empty text keeps an awaiting result", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("Prompt: A bus.", nil).Once()
		f.primary.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()

		_, err := f.session.Submit(ctx, busRequest())
		require.NoError(t, err)

		_, err = f.session.Submit(ctx, GenerationRequest{})
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Equal(t, AwaitingFeedback, f.session.State())
		assert.Equal(t, "A bus.", f.session.Artifacts().FinalPrompt)
	})
}

func TestSession_Submit_Fallback(t *testing.T) {
	fallbackPrompt := prompt.FallbackPrompt(busText, prompt.StylePhotographic)

	t.Run("primary failure then fallback success", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("", errors.New("503 unavailable")).Once()
		f.text.On("Complete", ctx, "", fallbackPrompt, DefaultFallbackTemperature).
			Return("  A photorealistic photo of a man entering a city bus.  ", nil).Once()
		f.primary.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()

		art, err := f.session.Submit(ctx, busRequest())
		require.NoError(t, err)

		assert.Equal(t, FallbackReasoning, art.Reasoning)
		assert.Equal(t, "A photorealistic photo of a man entering a city bus.", art.FinalPrompt)
		assert.True(t, art.UsedFallback)
		assert.Contains(t, f.session.Transitions(), PromptReady)
		f.text.AssertNumberOfCalls(t, "Complete", 2)
	})

	t.Run("empty split then fallback success", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("KROK 1: analiza\nPrompt: ```", nil).Once()
		f.text.On("Complete", ctx, "", fallbackPrompt, DefaultFallbackTemperature).Return("A man boarding a bus.", nil).Once()
		f.primary.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()

		art, err := f.session.Submit(ctx, busRequest())
		require.NoError(t, err)
		assert.Equal(t, FallbackReasoning, art.Reasoning)
		f.text.AssertNumberOfCalls(t, "Complete", 2)
	})

	t.Run("both fail", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("", errors.New("timeout")).Once()
		f.text.On("Complete", ctx, "", fallbackPrompt, DefaultFallbackTemperature).Return("", errors.New("timeout again")).Once()

		_, err := f.session.Submit(ctx, busRequest())
		require.Error(t, err)
		assert.Equal(t, ServiceCallFailed, KindOf(err))
		assert.Contains(t, err.Error(), "timeout again")

		assert.Equal(t, AnalysisFailed, f.session.State())
		assert.Equal(t, []State{AnalyzingText, AnalysisFailed}, f.session.Transitions())
		assert.Equal(t, Artifacts{}, f.session.Artifacts())
		f.text.AssertNumberOfCalls(t, "Complete", 2)
		f.primary.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
		assert.False(t, f.health.Get(health.TextModel).Healthy)
	})

	t.Run("fallback empty", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("", nil).Once()
		f.text.On("Complete", ctx, "", fallbackPrompt, DefaultFallbackTemperature).Return(" \n ", nil).Once()

		_, err := f.session.Submit(ctx, busRequest())
		require.Error(t, err)
		assert.Equal(t, EmptyResponse, KindOf(err))
		assert.ErrorIs(t, err, splitter.ErrEmptyPrompt)
		assert.Equal(t, AnalysisFailed, f.session.State())
		f.text.AssertNumberOfCalls(t, "Complete", 2)
	})

	t.Run("resubmit after failure", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("", errors.New("down")).Once()
		f.text.On("Complete", ctx, "", fallbackPrompt, DefaultFallbackTemperature).Return("", errors.New("down")).Once()
		_, err := f.session.Submit(ctx, busRequest())
		require.Error(t, err)

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("Prompt: A bus.", nil).Once()
		f.primary.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()
		_, err = f.session.Submit(ctx, busRequest())
		require.NoError(t, err)
		assert.Equal(t, AwaitingFeedback, f.session.State())
	})
}

func TestSession_Submit_Render(t *testing.T) {
	t.Run("falls back to placeholder", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("Prompt: A bus.", nil).Once()
		f.primary.On("Render", ctx, mock.Anything).Return(nil, errors.New("model not available")).Once()
		f.placeholder.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()

		art, err := f.session.Submit(ctx, busRequest())
		require.NoError(t, err)
		assert.Equal(t, "placeholder", art.Image.Strategy)
		assert.False(t, f.health.Get(health.ImageModel).Healthy)
	})

	t.Run("empty bytes count as failure", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("Prompt: A bus.", nil).Once()
		f.primary.On("Render", ctx, mock.Anything).Return([]byte{}, nil).Once()
		f.placeholder.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()

		art, err := f.session.Submit(ctx, busRequest())
		require.NoError(t, err)
		assert.Equal(t, "placeholder", art.Image.Strategy)
	})

	t.Run("every strategy fails", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("Prompt: A bus.", nil).Once()
		f.primary.On("Render", ctx, mock.Anything).Return(nil, errors.New("quota")).Once()
		f.placeholder.On("Render", ctx, mock.Anything).Return(nil, errors.New("disk")).Once()

		art, err := f.session.Submit(ctx, busRequest())
		require.Error(t, err)
		assert.Equal(t, ServiceCallFailed, KindOf(err))
		assert.Contains(t, err.Error(), "quota")
		assert.Contains(t, err.Error(), "disk")

		assert.Equal(t, RenderFailed, f.session.State())
		assert.Equal(t, "A bus.", art.FinalPrompt)
		assert.Equal(t, busRequest().Style, art.Request.Style)
		assert.False(t, art.HasImage())
		assert.Equal(t, Artifacts{}, f.session.Artifacts())
		f.primary.AssertNumberOfCalls(t, "Render", 1)
	})
}

func TestSession_Submit_ConfigMissing(t *testing.T) {
	p := New(Config{Unavailable: errors.New("GEMINI_API_KEY not set")})
	s := p.NewSession()

	_, err := s.Submit(context.Background(), busRequest())
	require.Error(t, err)
	assert.Equal(t, ConfigMissing, KindOf(err))
	assert.Equal(t, Idle, s.State())

	_, err = New(Config{Renderers: []ImageRenderer{&mockRenderer{name: "x"}}}).NewSession().Submit(context.Background(), busRequest())
	assert.Equal(t, ConfigMissing, KindOf(err))
}

func TestSession_Submit_Busy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	release := make(chan struct{})

	f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).
		Run(func(mock.Arguments) { <-release }).
		Return("Prompt: A bus.", nil).Once()
	f.primary.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Submit(ctx, busRequest())
		done <- err
	}()

	require.Eventually(t, func() bool { return f.session.State() == AnalyzingText }, time.Second, 5*time.Millisecond)

	_, err := f.session.Submit(ctx, busRequest())
	assert.ErrorIs(t, err, ErrBusy)

	f.session.Reset()
	assert.Equal(t, AnalyzingText, f.session.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, AwaitingFeedback, f.session.State())
}

func submitted(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.text.On("Complete", ctx, withSystem, mock.Anything, 0.6).
		Return("KROK1: ...\nPrompt: A photorealistic photo of a man boarding a bus.", nil).Once()
	f.primary.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()
	_, err := f.session.Submit(ctx, busRequest())
	require.NoError(t, err)
}

func TestSession_Commit(t *testing.T) {
	t.Run("nothing to rate", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.session.Commit(context.Background(), feedback.Positive, "")
		assert.ErrorIs(t, err, ErrNothingToRate)
		assert.Equal(t, ValidationError, KindOf(err))
		f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("passes artifacts to the recorder", func(t *testing.T) {
		f := newFixture(t)
		submitted(t, f)

		f.recorder.On("Record", mock.Anything, mock.MatchedBy(func(e feedback.Entry) bool {
			return e.SourceText == busText &&
				e.Reasoning == "KROK1: ..." &&
				e.FinalPrompt == "A photorealistic photo of a man boarding a bus." &&
				e.Style == "photographic" &&
				e.TextTemperature == 0.6 &&
				e.ImageTemperature == 0.4 &&
				e.Rating == feedback.Positive &&
				e.Comments == "czytelne" &&
				e.SystemPrompt != ""
		}), pngData).Return(feedback.Record{ImageFilename: "etr_image_20250101_000000.png"}, nil).Once()

		rec, err := f.session.Commit(context.Background(), feedback.Positive, "  czytelne ")
		require.NoError(t, err)
		assert.Equal(t, "etr_image_20250101_000000.png", rec.ImageFilename)

		assert.Equal(t, Idle, f.session.State())
		assert.Equal(t, Artifacts{}, f.session.Artifacts())
		f.recorder.AssertExpectations(t)

		_, err = f.session.Commit(context.Background(), feedback.Positive, "")
		assert.ErrorIs(t, err, ErrNothingToRate)
	})

	t.Run("persistence failure keeps the session", func(t *testing.T) {
		f := newFixture(t)
		submitted(t, f)

		f.recorder.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("disk full")).Once()
		_, err := f.session.Commit(context.Background(), feedback.Negative, "")
		require.Error(t, err)
		assert.Equal(t, PersistenceFailed, KindOf(err))
		assert.Equal(t, AwaitingFeedback, f.session.State())
		assert.True(t, f.session.Artifacts().HasImage())
		assert.False(t, f.health.Get(health.FeedbackLog).Healthy)

		f.recorder.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(feedback.Record{}, nil).Once()
		_, err = f.session.Commit(context.Background(), feedback.Negative, "")
		require.NoError(t, err)
		assert.Equal(t, Idle, f.session.State())
	})

	t.Run("invalid rating", func(t *testing.T) {
		f := newFixture(t)
		submitted(t, f)

		_, err := f.session.Commit(context.Background(), feedback.Rating("meh"), "")
		assert.Equal(t, ValidationError, KindOf(err))
		assert.Equal(t, AwaitingFeedback, f.session.State())
	})
}

func TestSession_Commit_NegativeEmptyComments(t *testing.T) {
	dir := t.TempDir()
	log := feedback.NewCSVLog(filepath.Join(dir, "feedback.csv"))
	text := &mockText{}
	renderer := &mockRenderer{name: "placeholder"}

	p := New(Config{
		Text:      text,
		Renderers: []ImageRenderer{renderer},
		Recorder:  feedback.NewRecorder(filepath.Join(dir, "generated_images"), log),
	})
	s := p.NewSession()
	ctx := context.Background()

	text.On("Complete", ctx, withSystem, mock.Anything, 0.6).Return("A simple photo of a bus stop.", nil).Once()
	renderer.On("Render", ctx, mock.Anything).Return(pngData, nil).Once()

	_, err := s.Submit(ctx, busRequest())
	require.NoError(t, err)

	rec, err := s.Commit(ctx, feedback.Negative, "")
	require.NoError(t, err)

	images, err := os.ReadDir(filepath.Join(dir, "generated_images"))
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, rec.ImageFilename, images[0].Name())

	records, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, feedback.Negative, records[0].Rating)
	assert.Equal(t, "", records[0].Comments)
	assert.Equal(t, splitter.NoReasoning, records[0].Reasoning)

	assert.Equal(t, Idle, s.State())
	assert.Equal(t, Artifacts{}, s.Artifacts())
}

func TestSession_Reset(t *testing.T) {
	f := newFixture(t)
	submitted(t, f)

	f.session.Reset()
	assert.Equal(t, Idle, f.session.State())
	assert.False(t, f.session.Artifacts().HasImage())
}

func TestError(t *testing.T) {
	err := &Error{Kind: PersistenceFailed, Op: "commit feedback", Err: feedback.ErrImageExists, Hint: "retry"}

	assert.Equal(t, "commit feedback: image file already exists", err.Error())
	assert.ErrorIs(t, err, feedback.ErrImageExists)
	assert.Equal(t, PersistenceFailed, KindOf(err))
	assert.Equal(t, "retry", HintOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "persistence_failed", PersistenceFailed.String())
	assert.Equal(t, "AwaitingFeedback", AwaitingFeedback.String())
}
