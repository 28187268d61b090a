package driven

import "context"

// EmbeddingService turns text into vectors. The gemini adapter talks to
// the Gemini API. The openai adapter serves OpenAI and any compatible
// endpoint such as Ollama.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a question rather than a passage. Providers
	// without task types treat it like Embed.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions must equal the vector store's dimension.
	Dimensions() int
	ModelName() string

	// Ping makes the cheapest real request the provider allows.
	Ping(ctx context.Context) error
	Close() error
}
