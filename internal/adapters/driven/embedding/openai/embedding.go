// Package openai provides an embedding service adapter for the OpenAI
// embeddings API and compatible servers such as Ollama.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel         = "text-embedding-3-small"
	DefaultTimeout       = 60 * time.Second
	DefaultMaxRetries    = 2
	OllamaBaseURL        = "http://localhost:11434/v1"
	DefaultOllamaModel   = "nomic-embed-text"
	ollamaPlaceholderKey = "ollama"
	maxBatch             = 2048
)

// Model dimensions for known embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
}

// Config holds configuration for the embedding service.
type Config struct {
	// APIKey is the API key. Ollama ignores it.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is the embedding model to use.
	Model string

	// Dimensions overrides the model's default size. Only the
	// text-embedding-3 models accept a custom size.
	Dimensions int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries is how often the client retries 429 and 5xx responses.
	MaxRetries int
}

// EmbeddingService generates embeddings with openai-go.
type EmbeddingService struct {
	client     openai.Client
	model      string
	dimensions int
	sendDims   bool
}

// NewEmbeddingService creates an OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrConfigMissing)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return newService(cfg), nil
}

// NewOllamaService creates a service against Ollama's OpenAI-compatible
// endpoint. No API key is needed.
func NewOllamaService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = ollamaPlaceholderKey
	}
	return newService(cfg)
}

func newService(cfg Config) *EmbeddingService {
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

	dims := cfg.Dimensions
	if dims == 0 {
		dims = modelDimensions[cfg.Model]
	}
	sendDims := cfg.Dimensions > 0 &&
		(cfg.Model == "text-embedding-3-small" || cfg.Model == "text-embedding-3-large")

	return &EmbeddingService{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		dimensions: dims,
		sendDims:   sendDims,
	}
}

// Embed generates a vector embedding for a document chunk.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedQuery embeds a question. OpenAI models are symmetric.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.Embed(ctx, text)
}

// EmbedBatch generates embeddings for many texts, splitting requests at
// the API's input limit.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := checkInputs(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: s.model,
	}
	if s.sendDims {
		params.Dimensions = param.NewOpt(int64(s.dimensions))
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			domain.ErrEmbeddingUnavailable, len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vecs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrEmbeddingUnavailable, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		if s.dimensions > 0 && len(vec) != s.dimensions {
			return nil, fmt.Errorf("%w: model returned %d, expected %d", domain.ErrDimensionMismatch, len(vec), s.dimensions)
		}
		vecs[d.Index] = vec
	}
	return vecs, nil
}

// checkInputs rejects an empty batch or a blank text before any request
// is made.
func checkInputs(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: nothing to embed", domain.ErrInvalidInput)
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: input %d is blank", domain.ErrInvalidInput, i)
		}
	}
	return nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w: %v", domain.ErrEmbeddingUnavailable, domain.ErrAuthInvalid, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w: %v", domain.ErrEmbeddingUnavailable, domain.ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
}
