package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// ChatService answers questions from the indexed documents.
type ChatService interface {
	// Ask answers a single question.
	Ask(ctx context.Context, question string) (*domain.Answer, error)

	// AskWithHistory answers a question, sending earlier exchanges along
	// so follow-up questions have context.
	AskWithHistory(ctx context.Context, question string, history []domain.Exchange) (*domain.Answer, error)

	// ModelName returns the chat model in use.
	ModelName() string
}
