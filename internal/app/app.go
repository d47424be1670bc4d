package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdulachik/etrimage/internal/config"
	"github.com/abdulachik/etrimage/internal/db"
	"github.com/abdulachik/etrimage/internal/feedback"
	"github.com/abdulachik/etrimage/internal/health"
	"github.com/abdulachik/etrimage/internal/imagegen"
	"github.com/abdulachik/etrimage/internal/llm"
	"github.com/abdulachik/etrimage/internal/metrics"
	"github.com/abdulachik/etrimage/internal/pipeline"
	"google.golang.org/genai"
)

// App is the main application container holding all dependencies.
type App struct {
	Config       *config.Config
	SystemPrompt string
	Store        *db.Store
	Log          feedback.Log
	Recorder     *feedback.Recorder
	Metrics      *metrics.Metrics
	Health       *health.Health
	Pipeline     *pipeline.Pipeline

	// Unavailable is why generation is disabled, or nil.
	Unavailable error
}

// New creates a new application instance with all dependencies wired up.
// Storage problems are fatal. Provider problems only disable generation so
// the UI can still start and explain what is missing.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	systemPrompt, err := cfg.LoadSystemPrompt()
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:       cfg,
		SystemPrompt: systemPrompt,
		Metrics:      metrics.New(),
		Health:       health.New(),
	}

	a.Log, a.Store, err = OpenFeedbackLog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Recorder = feedback.NewRecorder(cfg.ImageDir, a.Log)

	text, renderers, err := newProviders(ctx, cfg)
	if err != nil {
		slog.Warn("generation disabled", "error", err)
		a.Unavailable = err
	}

	a.Pipeline = pipeline.New(pipeline.Config{
		Text:                text,
		Renderers:           renderers,
		Recorder:            a.Recorder,
		FallbackTemperature: cfg.FallbackTemperature,
		Unavailable:         a.Unavailable,
		Metrics:             a.Metrics,
		Health:              a.Health,
	})

	slog.Info("application ready",
		"text_provider", cfg.TextProvider,
		"text_model", cfg.TextModel,
		"image_provider", cfg.ImageProvider,
		"strategies", a.Pipeline.Strategies(),
		"feedback_store", cfg.FeedbackStore,
	)

	return a, nil
}

// OpenFeedbackLog opens the log selected by FEEDBACK_STORE. The store is
// non-nil only for SQLite, where the log owns and closes it.
func OpenFeedbackLog(ctx context.Context, cfg *config.Config) (feedback.Log, *db.Store, error) {
	if err := cfg.ValidateForStorage(); err != nil {
		return nil, nil, err
	}

	if cfg.FeedbackStore != config.StoreSQLite {
		return feedback.NewCSVLog(cfg.FeedbackCSVPath), nil, nil
	}

	slog.Info("connecting to database", "path", cfg.DatabasePath)
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return feedback.NewSQLiteLog(store), store, nil
}

// newProviders builds the text completer and the ordered render strategies.
func newProviders(ctx context.Context, cfg *config.Config) (pipeline.TextCompleter, []pipeline.ImageRenderer, error) {
	if err := cfg.ValidateForGeneration(); err != nil {
		return nil, nil, err
	}

	var client *genai.Client
	if cfg.TextProvider == config.ProviderGemini || cfg.ImageProvider == config.ProviderGemini {
		var err error
		client, err = llm.NewGenAIClient(ctx, cfg.GeminiAPIKey, cfg.RequestTimeout)
		if err != nil {
			return nil, nil, err
		}
	}

	var text pipeline.TextCompleter
	switch cfg.TextProvider {
	case config.ProviderGemini:
		text = llm.NewGemini(client.Models, cfg.TextModel)
	case config.ProviderOpenAI:
		text = llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.TextModel,
			Timeout: cfg.RequestTimeout,
		})
	case config.ProviderAnthropic:
		text = llm.NewAnthropic(llm.AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.TextModel,
			Timeout: cfg.RequestTimeout,
		})
	case config.ProviderOllama:
		ollama, err := llm.NewOllama(llm.OllamaConfig{
			Host:    cfg.OllamaHost,
			Model:   cfg.TextModel,
			Timeout: cfg.RequestTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		text = ollama
	}

	var renderers []pipeline.ImageRenderer
	switch cfg.ImageProvider {
	case config.ProviderGemini:
		renderers = append(renderers, imagegen.NewGemini(client.Models, cfg.ImageModel))
		if cfg.PlaceholderFallback {
			renderers = append(renderers, imagegen.NewPlaceholder())
		}
	case config.ProviderPlaceholder:
		renderers = append(renderers, imagegen.NewPlaceholder())
	}

	return text, renderers, nil
}

// Close closes all resources. The SQLite log owns the store.
func (a *App) Close() error {
	if a.Log != nil {
		return a.Log.Close()
	}
	return nil
}
