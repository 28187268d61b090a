// Package gemini provides an embedding service adapter for the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
	maxBatch          = 100
)

// Gemini embeds documents and questions with different task types.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (GOOGLE_GEMINI_API_KEY).
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is the embedding model.
	Model string

	// Dimensions truncates output vectors when the model supports it.
	Dimensions int

	// HTTPClient replaces the default client.
	HTTPClient *http.Client
}

// EmbeddingService generates embeddings through google.golang.org/genai.
type EmbeddingService struct {
	client     *genai.Client
	model      string
	dimensions int
	override   bool
}

// NewEmbeddingService creates a Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigMissing, domain.EnvGeminiAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", domain.ErrEmbeddingUnavailable, err)
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = DefaultDimensions
	}
	return &EmbeddingService{
		client:     client,
		model:      cfg.Model,
		dimensions: dims,
		override:   cfg.Dimensions > 0,
	}, nil
}

// Embed generates a document embedding.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embed(ctx, []string{text}, taskDocument)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedQuery generates a query embedding.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates document embeddings in batches.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := checkInputs(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := s.embed(ctx, texts[start:end], taskDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	if err := checkInputs(texts); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: task}
	if s.override {
		cfg.OutputDimensionality = genai.Ptr(int32(s.dimensions))
	}

	resp, err := s.client.Models.EmbedContent(ctx, s.model, contents, cfg)
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			domain.ErrEmbeddingUnavailable, len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at %d", domain.ErrEmbeddingUnavailable, i)
		}
		if len(e.Values) != s.dimensions {
			return nil, fmt.Errorf("%w: model returned %d, expected %d", domain.ErrDimensionMismatch, len(e.Values), s.dimensions)
		}
		vecs[i] = e.Values
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

// Ping fetches the model's metadata.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.Get(ctx, s.model, nil); err != nil {
		return wrapError(err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w: %v", domain.ErrEmbeddingUnavailable, domain.ErrAuthInvalid, err)
		case http.StatusBadRequest:
			if apiErr.Status == "INVALID_ARGUMENT" && containsKeyHint(apiErr.Message) {
				return fmt.Errorf("%w: %w: %v", domain.ErrEmbeddingUnavailable, domain.ErrAuthInvalid, err)
			}
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w: %v", domain.ErrEmbeddingUnavailable, domain.ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
}

// Gemini reports a bad key as 400 INVALID_ARGUMENT.
func containsKeyHint(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "api key")
}
