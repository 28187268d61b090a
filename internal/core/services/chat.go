package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure ChatAgent implements the interface.
var _ driving.ChatService = (*ChatAgent)(nil)

// ChatAgent answers questions by retrieving the closest chunks and asking
// the chat model to answer from them alone.
type ChatAgent struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings domain.ChatSettings
}

// NewChatAgent creates a chat agent. prompts may be nil, in which case
// the built-in system prompt is used.
func NewChatAgent(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.ChatSettings,
) *ChatAgent {
	if settings.TopK <= 0 {
		settings.TopK = domain.DefaultTopK
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = domain.DefaultMaxTokens
	}
	return &ChatAgent{
		embedder: embedder,
		store:    store,
		llm:      llm,
		prompts:  prompts,
		settings: settings,
	}
}

// Ask answers a single question.
func (a *ChatAgent) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	return a.AskWithHistory(ctx, question, nil)
}

// AskWithHistory answers a question, sending up to HistoryTurns earlier
// exchanges along. Retrieval uses the question alone.
func (a *ChatAgent) AskWithHistory(ctx context.Context, question string, history []domain.Exchange) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	matches, err := a.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		Question: question,
		Matches:  matches,
		Sources:  domain.SourceNames(matches),
		Model:    a.llm.ModelName(),
	}

	contextText := strings.TrimSpace(domain.ContextText(matches))
	if contextText == "" {
		logger.Debug("chat: no context retrieved for %q", question)
		answer.Text = domain.NoAnswerMessage
		answer.Sources = nil
		return answer, nil
	}

	messages := make([]driven.ChatMessage, 0, 2+2*len(history))
	messages = append(messages, driven.ChatMessage{
		Role:    driven.RoleSystem,
		Content: a.systemPrompt() + "\n\nContext: " + contextText,
	})
	for _, ex := range a.recent(history) {
		messages = append(messages,
			driven.ChatMessage{Role: driven.RoleUser, Content: ex.Question},
			driven.ChatMessage{Role: driven.RoleAssistant, Content: ex.Answer},
		)
	}
	messages = append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: question})

	text, err := a.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   a.settings.MaxTokens,
		Temperature: a.settings.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	answer.Text = strings.TrimSpace(text)
	answer.Grounded = true
	return answer, nil
}

// Retrieve embeds the question and returns the TopK closest chunks.
func (a *ChatAgent) Retrieve(ctx context.Context, question string) ([]domain.Match, error) {
	vec, err := a.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	matches, err := a.store.Query(ctx, vec, a.settings.TopK)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}
	logger.Debug("chat: retrieved %d matches", len(matches))
	return matches, nil
}

// ModelName returns the chat model in use.
func (a *ChatAgent) ModelName() string {
	return a.llm.ModelName()
}

func (a *ChatAgent) systemPrompt() string {
	if a.prompts == nil {
		return domain.DefaultSystemPrompt
	}
	prompt, err := a.prompts.Load(driven.PromptChatSystem)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return domain.DefaultSystemPrompt
	}
	return prompt
}

func (a *ChatAgent) recent(history []domain.Exchange) []domain.Exchange {
	n := a.settings.HistoryTurns
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return history
}

// Conversation tracks exchanges for a multi-turn session.
type Conversation struct {
	chat    driving.ChatService
	history []domain.Exchange
	limit   int
}

// NewConversation starts a conversation keeping at most limit exchanges.
func NewConversation(chat driving.ChatService, limit int) *Conversation {
	return &Conversation{chat: chat, limit: limit}
}

// Ask answers question with the kept history and records the exchange.
// Ungrounded answers are not recorded.
func (c *Conversation) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	answer, err := c.chat.AskWithHistory(ctx, question, c.history)
	if err != nil {
		return nil, err
	}
	if answer.Grounded && c.limit > 0 {
		c.history = append(c.history, domain.Exchange{Question: answer.Question, Answer: answer.Text})
		if len(c.history) > c.limit {
			c.history = c.history[len(c.history)-c.limit:]
		}
	}
	return answer, nil
}

// History returns the kept exchanges.
func (c *Conversation) History() []domain.Exchange {
	return append([]domain.Exchange(nil), c.history...)
}

// Reset forgets the history.
func (c *Conversation) Reset() {
	c.history = nil
}
