package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockConnector serves files from memory.
type mockConnector struct {
	mu       sync.Mutex
	files    []domain.SourceFile
	content  map[string]string
	listErr  error
	fetchErr map[string]error
	fetched  []string
	events   chan domain.SourceEvent
	watchErr error
}

func newMockConnector() *mockConnector {
	return &mockConnector{
		content:  make(map[string]string),
		fetchErr: make(map[string]error),
	}
}

func (m *mockConnector) add(file domain.SourceFile, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.files {
		if f.ID == file.ID {
			m.files[i] = file
			m.content[file.ID] = text
			return
		}
	}
	m.files = append(m.files, file)
	m.content[file.ID] = text
}

func (m *mockConnector) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.files {
		if f.ID == id {
			m.files = append(m.files[:i], m.files[i+1:]...)
			return
		}
	}
}

func (m *mockConnector) Type() string                     { return "mock" }
func (m *mockConnector) SourceID() string                 { return "mock-source" }
func (m *mockConnector) Validate(_ context.Context) error { return nil }
func (m *mockConnector) Close() error                     { return nil }

func (m *mockConnector) List(_ context.Context) ([]domain.SourceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.SourceFile(nil), m.files...), nil
}

func (m *mockConnector) Fetch(_ context.Context, file domain.SourceFile) (*domain.RawDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, file.ID)
	if err := m.fetchErr[file.ID]; err != nil {
		return nil, err
	}
	return &domain.RawDocument{
		SourceID: m.SourceID(),
		FileID:   file.ID,
		URI:      file.URI,
		MIMEType: "text/plain",
		Content:  []byte(m.content[file.ID]),
	}, nil
}

func (m *mockConnector) Watch(_ context.Context) (<-chan domain.SourceEvent, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	if m.events == nil {
		return nil, errors.New("watch not supported")
	}
	return m.events, nil
}

func (m *mockConnector) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fetched)
}

// mockRegistry treats content as plain text.
type mockRegistry struct{}

func (mockRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	return &domain.Document{
		ID:      raw.FileID,
		FileID:  raw.FileID,
		Content: string(raw.Content),
	}, nil
}
func (mockRegistry) SupportedMIMETypes() []string { return []string{"text/plain"} }

// mockPipeline splits content on "|" so tests control the chunks.
type mockPipeline struct{}

func (mockPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, part := range strings.Split(doc.Content, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:         domain.VectorID(doc.ID, len(chunks)),
			DocumentID: doc.ID,
			Content:    part,
			Position:   len(chunks),
		})
	}
	return chunks, nil
}

// mockEmbedder maps text to a small deterministic vector.
type mockEmbedder struct {
	mu       sync.Mutex
	err      error
	queryErr error
	calls    int
}

func embedText(text string) []float32 {
	v := []float32{1, 0, 0}
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'm':
			v[1]++
		case r >= 'n' && r <= 'z':
			v[2]++
		}
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return embedText(text), m.err
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return embedText(text), nil
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM records the messages it was sent.
type mockLLM struct {
	reply    string
	err      error
	messages []driven.ChatMessage
	opts     driven.ChatOptions
	calls    int
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.ChatOptions) (string, error) {
	return m.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, opts)
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) ModelName() string            { return "mock-chat" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockPrompts serves a fixed system prompt.
type mockPrompts struct {
	system string
	err    error
}

func (m *mockPrompts) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if name != driven.PromptChatSystem {
		return "", domain.ErrNotFound
	}
	return m.system, nil
}
func (m *mockPrompts) Path(name string) string { return name + ".txt" }
func (m *mockPrompts) Reset(_ string) error    { return nil }
func (m *mockPrompts) Names() []string         { return []string{driven.PromptChatSystem} }
func (m *mockPrompts) Reload()                 {}

// failingStore wraps a vector store and fails selected operations.
type failingStore struct {
	driven.VectorStore
	upsertErr     error
	upsertAfter   int
	upserts       int
	deleteIDsErr  error
	deleteFileErr error
	deleteFileIDs []string
}

func (f *failingStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	f.upserts++
	if f.upsertErr != nil && f.upserts > f.upsertAfter {
		return f.upsertErr
	}
	return f.VectorStore.Upsert(ctx, records)
}

func (f *failingStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if f.deleteIDsErr != nil {
		return f.deleteIDsErr
	}
	return f.VectorStore.DeleteByIDs(ctx, ids)
}

func (f *failingStore) DeleteByFile(ctx context.Context, fileID string) error {
	f.deleteFileIDs = append(f.deleteFileIDs, fileID)
	if f.deleteFileErr != nil {
		return f.deleteFileErr
	}
	return f.VectorStore.DeleteByFile(ctx, fileID)
}

// Ensure mocks implement interfaces.
var (
	_ driven.Connector             = (*mockConnector)(nil)
	_ driven.NormaliserRegistry    = mockRegistry{}
	_ driven.PostProcessorPipeline = mockPipeline{}
	_ driven.EmbeddingService      = (*mockEmbedder)(nil)
	_ driven.LLMService            = (*mockLLM)(nil)
	_ driven.PromptStore           = (*mockPrompts)(nil)
)
