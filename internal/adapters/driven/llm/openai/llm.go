// Package openai provides an LLM service adapter for OpenAI-compatible
// chat completion APIs: OpenAI itself, Groq and Ollama.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 2
)

// Preset endpoint and model for each OpenAI-compatible provider.
type Preset struct {
	BaseURL string
	Model   string
	KeyEnv  string
}

// Presets maps providers to their endpoints.
var Presets = map[domain.AIProvider]Preset{
	domain.AIProviderOpenAI: {
		Model:  "gpt-4o-mini",
		KeyEnv: domain.EnvOpenAIAPIKey,
	},
	domain.AIProviderGroq: {
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "deepseek-r1-distill-llama-70b",
		KeyEnv:  domain.EnvGroqAPIKey,
	},
	domain.AIProviderOllama: {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.2",
	},
}

// Reasoning models such as deepseek-r1 prefix answers with their chain
// of thought.
var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Config holds configuration for the LLM service.
type Config struct {
	// Provider selects the preset. Defaults to openai.
	Provider domain.AIProvider

	// APIKey is the provider API key. Ollama ignores it.
	APIKey string

	// BaseURL overrides the preset endpoint.
	BaseURL string

	// Model overrides the preset model.
	Model string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries is how often the client retries 429 and 5xx responses.
	MaxRetries int
}

// LLMService produces chat completions with openai-go.
type LLMService struct {
	client   openai.Client
	provider domain.AIProvider
	model    string
}

// NewLLMService creates a chat service for the configured provider.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.Provider == "" {
		cfg.Provider = domain.AIProviderOpenAI
	}
	preset, ok := Presets[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not OpenAI-compatible", domain.ErrUnsupportedType, cfg.Provider)
	}

	if cfg.APIKey == "" {
		if cfg.Provider.RequiresAPIKey() {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigMissing, preset.KeyEnv)
		}
		cfg.APIKey = string(cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = preset.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = preset.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &LLMService{
		client:   openai.NewClient(opts...),
		provider: cfg.Provider,
		model:    cfg.Model,
	}, nil
}

// Generate produces a completion for a single user prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.ChatOptions) (string, error) {
	return s.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, opts)
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", domain.ErrInvalidInput)
	}

	params := openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: toMessages(messages),
	}
	if opts.MaxTokens > 0 {
		// Groq and Ollama still expect max_tokens.
		params.MaxTokens = param.NewOpt(int64(opts.MaxTokens))
	}
	params.Temperature = param.NewOpt(opts.Temperature)

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrLLMUnavailable)
	}
	return StripThinking(resp.Choices[0].Message.Content), nil
}

// StripThinking removes <think> blocks and surrounding whitespace.
func StripThinking(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Provider returns the configured provider.
func (s *LLMService) Provider() domain.AIProvider {
	return s.provider
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

func toMessages(messages []driven.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case driven.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case driven.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w: %v", domain.ErrLLMUnavailable, domain.ErrAuthInvalid, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w: %v", domain.ErrLLMUnavailable, domain.ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
}
