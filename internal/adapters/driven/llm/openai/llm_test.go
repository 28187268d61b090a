package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

type chatRequest struct {
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, reply string, status int, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error"}}`))
			return
		}
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "m",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantModel string
		wantErr   error
	}{
		{"openai default", Config{APIKey: "k"}, "gpt-4o-mini", nil},
		{"groq preset", Config{Provider: domain.AIProviderGroq, APIKey: "k"}, "deepseek-r1-distill-llama-70b", nil},
		{"ollama needs no key", Config{Provider: domain.AIProviderOllama}, "llama3.2", nil},
		{"model override", Config{APIKey: "k", Model: "gpt-4o"}, "gpt-4o", nil},
		{"missing key", Config{Provider: domain.AIProviderGroq}, "", domain.ErrConfigMissing},
		{"not compatible", Config{Provider: domain.AIProviderAnthropic, APIKey: "k"}, "", domain.ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewLLMService(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestChat(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, "<think>\nreasoning here\n</think>\n\nEmployees get 25 days.", 0, &seen)

	svc, err := NewLLMService(Config{Provider: domain.AIProviderGroq, APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	answer, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "You are an HR assistant.\n\nContext: leave is 25 days"},
		{Role: driven.RoleUser, Content: "How many leave days?"},
	}, driven.ChatOptions{MaxTokens: 512, Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "Employees get 25 days.", answer)
	assert.Equal(t, "deepseek-r1-distill-llama-70b", seen.Model)
	assert.Equal(t, 512, seen.MaxTokens)
	require.NotNil(t, seen.Temperature)
	assert.InDelta(t, 0.2, *seen.Temperature, 1e-9)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "user", seen.Messages[1].Role)
}

func TestGenerate(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, "  ok  ", 0, &seen)

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	out, err := svc.Generate(context.Background(), "ping", driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "user", seen.Messages[0].Role)
}

func TestChat_Errors(t *testing.T) {
	t.Run("no messages", func(t *testing.T) {
		svc, err := NewLLMService(Config{APIKey: "k"})
		require.NoError(t, err)
		_, err = svc.Chat(context.Background(), nil, driven.ChatOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unauthorised", func(t *testing.T) {
		srv := newChatServer(t, "", http.StatusUnauthorized, nil)
		svc, err := NewLLMService(Config{APIKey: "bad", BaseURL: srv.URL + "/"})
		require.NoError(t, err)

		_, err = svc.Generate(context.Background(), "hi", driven.ChatOptions{})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})
}

func TestStripThinking(t *testing.T) {
	tests := map[string]string{
		"plain":                             "plain",
		"<think>x</think>answer":            "answer",
		"<think>\nmulti\nline\n</think>\nA": "A",
		"a <think>x</think> b":              "a  b",
		"  padded  ":                        "padded",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripThinking(in), in)
	}
}

func TestChat_SendsZeroTemperature(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, "25 days.", 0, &seen)

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "hi", driven.ChatOptions{Temperature: 0})
	require.NoError(t, err)
	require.NotNil(t, seen.Temperature, "temperature 0 must be sent, not left to the provider default")
	assert.Zero(t, *seen.Temperature)
}
