package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newOpenAIServer(t *testing.T, check func(chatRequest), content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(req)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAI_Complete(t *testing.T) {
	t.Run("system and user messages", func(t *testing.T) {
		server := newOpenAIServer(t, func(req chatRequest) {
			assert.Equal(t, "gpt-4o-mini", req.Model)
			assert.InDelta(t, 0.6, req.Temperature, 1e-6)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "ETR", req.Messages[0].Content)
			assert.Equal(t, "user", req.Messages[1].Role)
		}, "Prompt: A bus.")

		client := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
		out, err := client.Complete(context.Background(), "ETR", "Tekst", 0.6)
		require.NoError(t, err)
		assert.Equal(t, "Prompt: A bus.", out)
	})

	t.Run("no system message for fallback", func(t *testing.T) {
		server := newOpenAIServer(t, func(req chatRequest) {
			require.Len(t, req.Messages, 1)
			assert.Equal(t, "user", req.Messages[0].Role)
		}, "A bus.")

		client := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-4o"})
		_, err := client.Complete(context.Background(), "", "Based on this Polish text", 0.5)
		require.NoError(t, err)
	})

	t.Run("empty content", func(t *testing.T) {
		server := newOpenAIServer(t, nil, "")

		client := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
		_, err := client.Complete(context.Background(), "s", "u", 0.5)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
		}))
		defer server.Close()

		client := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
		_, err := client.Complete(context.Background(), "s", "u", 0.5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})
}
