package mcp

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer   *domain.Answer
	err      error
	question string
}

func (m *mockChatService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	m.question = question
	return m.answer, m.err
}

func (m *mockChatService) AskWithHistory(
	ctx context.Context,
	question string,
	_ []domain.Exchange,
) (*domain.Answer, error) {
	return m.Ask(ctx, question)
}

func (m *mockChatService) ModelName() string { return "mock" }

// mockUpdater is a mock implementation of driving.Updater.
type mockUpdater struct {
	report *domain.UpdateReport
	files  []domain.ProcessedFile
	err    error
}

func (m *mockUpdater) Update(_ context.Context) (*domain.UpdateReport, error) {
	return m.report, m.err
}

func (m *mockUpdater) Status() *domain.UpdateReport { return m.report }

func (m *mockUpdater) ProcessedFiles(_ context.Context) ([]domain.ProcessedFile, error) {
	return m.files, m.err
}

func (m *mockUpdater) Reset(_ context.Context) error { return m.err }

// Ensure mocks implement interfaces.
var (
	_ driving.ChatService = (*mockChatService)(nil)
	_ driving.Updater     = (*mockUpdater)(nil)
)
