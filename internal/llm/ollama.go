package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const defaultOllamaModel = "llama3.1"

// OllamaConfig holds configuration for a local Ollama server.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// Ollama completes prompts with a locally served model.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates a client for the Ollama chat API.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(cfg.Host, "/"), "/v1")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", cfg.Host, err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}

	return &Ollama{
		client: api.NewClient(u, httpClient(cfg.Timeout)),
		model:  model,
	}, nil
}

func (c *Ollama) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	var messages []api.Message
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	messages = append(messages, api.Message{Role: "user", Content: user})

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": temperature,
		},
	}

	var sb strings.Builder
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		sb.WriteString(r.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
