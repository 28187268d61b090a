package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings("/data")

	assert.Equal(t, SourceLocal, s.Source.Kind)
	assert.Equal(t, []string{".txt"}, s.Source.Extensions)
	assert.Equal(t, VectorBackendChroma, s.VectorStore.Backend)
	assert.Equal(t, filepath.Join("/data", "chroma_db"), s.VectorStore.Path)
	assert.Equal(t, filepath.Join("/data", DefaultLedgerFile), s.Sync.LedgerPath)
	assert.Equal(t, 500, s.Chunking.Size)
	assert.Equal(t, 100, s.Chunking.Overlap)
	assert.Equal(t, 3, s.Chat.TopK)
	assert.InDelta(t, 0.2, s.Chat.Temperature, 1e-9)
	assert.Equal(t, 512, s.Chat.MaxTokens)
	assert.Equal(t, DefaultUpdateInterval, s.Sync.Interval)
}

func TestApplyDrivePreset(t *testing.T) {
	s := DefaultAppSettings("/data")
	s.ApplyDrivePreset()

	assert.Equal(t, SourceGoogleDrive, s.Source.Kind)
	assert.Equal(t, AIProviderGemini, s.Embedding.Provider)
	assert.Equal(t, "text-embedding-004", s.Embedding.Model)
	assert.Equal(t, VectorBackendPinecone, s.VectorStore.Backend)
	assert.Equal(t, AIProviderGroq, s.LLM.Provider)
	assert.Equal(t, 768, s.EmbeddingDims())
}

func TestAppSettings_Missing(t *testing.T) {
	t.Run("drive preset lists every original variable", func(t *testing.T) {
		s := DefaultAppSettings("/data")
		s.ApplyDrivePreset()

		assert.Equal(t, []string{
			EnvDriveServiceAccount,
			EnvDriveFolderID,
			EnvPineconeAPIKey,
			EnvPineconeEnv,
			EnvPineconeIndex,
			EnvGeminiAPIKey,
			EnvGroqAPIKey,
		}, s.Missing())
	})

	t.Run("shared key reported once", func(t *testing.T) {
		s := DefaultAppSettings("/data")
		assert.Equal(t, []string{EnvOpenAIAPIKey}, s.Missing())
	})

	t.Run("ollama needs nothing", func(t *testing.T) {
		s := DefaultAppSettings("/data")
		s.Embedding.Provider = AIProviderOllama
		s.LLM.Provider = AIProviderOllama
		assert.Empty(t, s.Missing())
	})
}

func TestAIProvider(t *testing.T) {
	tests := []struct {
		provider   AIProvider
		valid      bool
		needsKey   bool
		embeddings bool
	}{
		{AIProviderOpenAI, true, true, true},
		{AIProviderGemini, true, true, true},
		{AIProviderGroq, true, true, false},
		{AIProviderOllama, true, false, true},
		{AIProviderAnthropic, true, true, false},
		{AIProvider("bogus"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.provider.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.provider.IsValid())
			assert.Equal(t, tt.needsKey, tt.provider.RequiresAPIKey())
			assert.Equal(t, tt.embeddings, tt.provider.SupportsEmbeddings())
		})
	}
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.False(t, EmbeddingSettings{Provider: AIProviderGroq, APIKey: "k"}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
}

func TestBackends_IsValid(t *testing.T) {
	assert.True(t, VectorBackendMemory.IsValid())
	assert.False(t, VectorBackend("faiss").IsValid())

	assert.True(t, LedgerJSON.IsValid())
	assert.True(t, LedgerSQLite.IsValid())
	assert.True(t, LedgerMemory.IsValid())
	assert.False(t, LedgerBackend("redis").IsValid())
}
