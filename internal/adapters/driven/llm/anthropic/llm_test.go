package anthropic

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

type messagesRequest struct {
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
	System      []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role string `json:"role"`
	} `json:"messages"`
}

func newServer(t *testing.T, status int, seen *messagesRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
			return
		}
		assert.Equal(t, "/v1/messages", r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       DefaultModel,
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": " Twenty-five days. "}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 4},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfigMissing)

	svc, err := NewLLMService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestChat_SystemPromptIsTopLevel(t *testing.T) {
	var seen messagesRequest
	srv := newServer(t, 0, &seen)

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "HR assistant"},
		{Role: driven.RoleUser, Content: "How many days?"},
	}, driven.ChatOptions{MaxTokens: 512, Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "Twenty-five days.", out)
	assert.Equal(t, 512, seen.MaxTokens)
	require.Len(t, seen.System, 1)
	assert.Equal(t, "HR assistant", seen.System[0].Text)
	require.NotNil(t, seen.Temperature)
	assert.InDelta(t, 0.2, *seen.Temperature, 1e-9)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "user", seen.Messages[0].Role)
}

func TestChat_DefaultMaxTokens(t *testing.T) {
	var seen messagesRequest
	srv := newServer(t, 0, &seen)

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "hi", driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTokens, seen.MaxTokens)
}

func TestChat_Errors(t *testing.T) {
	svc, err := NewLLMService(Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleSystem, Content: "only system"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	srv := newServer(t, http.StatusUnauthorized, nil)
	bad, err := NewLLMService(Config{APIKey: "bad", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	_, err = bad.Generate(context.Background(), "hi", driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestChat_SendsZeroTemperature(t *testing.T) {
	var seen messagesRequest
	srv := newServer(t, 0, &seen)

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "hi", driven.ChatOptions{Temperature: 0})
	require.NoError(t, err)
	require.NotNil(t, seen.Temperature, "temperature 0 must be sent, not left to the provider default")
	assert.Zero(t, *seen.Temperature)
}
