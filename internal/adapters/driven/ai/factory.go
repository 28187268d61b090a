// Package ai builds embedding and chat services from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/docrag/internal/adapters/driven/embedding/gemini"
	openaiembed "github.com/custodia-labs/docrag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docrag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/docrag/internal/adapters/driven/llm/gemini"
	openaillm "github.com/custodia-labs/docrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the embedding service for the provider.
func CreateEmbeddingService(ctx context.Context, s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !s.Provider.SupportsEmbeddings() {
		return nil, fmt.Errorf("%w: %s does not offer embeddings, use openai, gemini or ollama",
			domain.ErrUnsupportedType, s.Provider)
	}
	if !s.IsConfigured() {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigMissing, s.Provider.APIKeyEnv())
	}

	switch s.Provider {
	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: s.Dimensions,
		})
	case domain.AIProviderOllama:
		return openaiembed.NewOllamaService(openaiembed.Config{
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: s.Dimensions,
		}), nil
	default:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: s.Dimensions,
		})
	}
}

// CreateLLMService creates the chat service for the provider.
func CreateLLMService(ctx context.Context, s domain.LLMSettings) (driven.LLMService, error) {
	if !s.Provider.IsValid() {
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, s.Provider)
	}
	if !s.IsConfigured() {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigMissing, s.Provider.APIKeyEnv())
	}

	switch s.Provider {
	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
		})
	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
		})
	default:
		return openaillm.NewLLMService(openaillm.Config{
			Provider: s.Provider,
			APIKey:   s.APIKey,
			BaseURL:  s.BaseURL,
			Model:    s.Model,
		})
	}
}

// CreateAndValidateEmbeddingService creates the service and pings it.
func CreateAndValidateEmbeddingService(ctx context.Context, s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, s.Provider, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates the service and pings it.
func CreateAndValidateLLMService(ctx context.Context, s domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable: %w", domain.ErrLLMUnavailable, s.Provider, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig checks an embedding configuration end to end.
func ValidateEmbeddingConfig(ctx context.Context, s domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, s)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateLLMConfig checks a chat configuration end to end.
func ValidateLLMConfig(ctx context.Context, s domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(ctx, s)
	if err != nil {
		return err
	}
	return svc.Close()
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}
