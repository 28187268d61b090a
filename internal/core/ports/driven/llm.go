package driven

import "context"

// LLMService writes the answer. The openai adapter covers OpenAI, Groq
// and Ollama; gemini and anthropic use their own SDKs.
type LLMService interface {
	// Chat sends the conversation and returns the reply text. A leading
	// RoleSystem message becomes the provider's system instruction.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// Generate is Chat with a single user message.
	Generate(ctx context.Context, prompt string, opts ChatOptions) (string, error)

	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string // RoleSystem, RoleUser or RoleAssistant
	Content string
}

// ChatOptions are the sampling settings from the chat section.
// Zero MaxTokens leaves the provider default; Temperature is always sent.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
