// Package llm adapts language-model providers to a single Complete call.
package llm

import (
	"errors"
	"net/http"
	"time"
)

// Provider names accepted by TEXT_PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// ErrEmptyResponse is returned when a provider answered without any text.
var ErrEmptyResponse = errors.New("empty response from model")

const defaultTimeout = 120 * time.Second

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
