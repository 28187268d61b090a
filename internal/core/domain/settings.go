package domain

import (
	"path/filepath"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// Environment variables recognised alongside DOCRAG_* overrides.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvDriveServiceAccount = "GOOGLE_DRIVE_SERVICE_ACCOUNT_FILE"
	EnvDriveFolderID       = "GOOGLE_DRIVE_FOLDER_ID"
	EnvPineconeAPIKey      = "PINECONE_API_KEY"
	EnvPineconeEnv         = "PINECONE_ENV"
	EnvPineconeIndex       = "PINECONE_INDEX_NAME"
	EnvGeminiAPIKey        = "GOOGLE_GEMINI_API_KEY"
	EnvGroqAPIKey          = "GROQ_API_KEY"
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvAnthropicAPIKey     = "ANTHROPIC_API_KEY"
)

// EnvPrefix is prepended to settings keys to form override variables.
const EnvPrefix = "DOCRAG"

// SettingEnvVar maps a settings key to its override variable:
// "llm.provider" is DOCRAG_LLM_PROVIDER.
func SettingEnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// SourceKind identifies where documents come from.
type SourceKind string

// Available document sources.
const (
	// SourceLocal reads files from a local folder.
	SourceLocal SourceKind = "local"

	// SourceGoogleDrive reads files from a Drive folder via a service account.
	SourceGoogleDrive SourceKind = "gdrive"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	return k == SourceLocal || k == SourceGoogleDrive
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// Description returns a human-readable description of the source.
func (k SourceKind) Description() string {
	switch k {
	case SourceLocal:
		return "Local folder"
	case SourceGoogleDrive:
		return "Google Drive folder"
	default:
		return unknownDescription
	}
}

// AIProvider identifies an AI service provider for embeddings or chat.
type AIProvider string

// Available AI providers.
const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderGemini    AIProvider = "gemini"
	AIProviderGroq      AIProvider = "groq"
	AIProviderOllama    AIProvider = "ollama"
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderGemini, AIProviderGroq, AIProviderOllama, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p.IsValid() && p != AIProviderOllama
}

// APIKeyEnv returns the environment variable conventionally holding the key.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return EnvOpenAIAPIKey
	case AIProviderGemini:
		return EnvGeminiAPIKey
	case AIProviderGroq:
		return EnvGroqAPIKey
	case AIProviderAnthropic:
		return EnvAnthropicAPIKey
	default:
		return ""
	}
}

// SupportsEmbeddings returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini || p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderGroq:
		return "Groq (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies the vector store implementation.
type VectorBackend string

// Available vector stores.
const (
	// VectorBackendChroma is an embedded, persisted Chroma-style store.
	VectorBackendChroma VectorBackend = "chroma"

	// VectorBackendPinecone is the hosted Pinecone service.
	VectorBackendPinecone VectorBackend = "pinecone"

	// VectorBackendMemory keeps vectors in process memory only.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendChroma, VectorBackendPinecone, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// LedgerBackend identifies where processed-file records are kept.
type LedgerBackend string

// Available ledgers.
const (
	LedgerJSON   LedgerBackend = "json"
	LedgerSQLite LedgerBackend = "sqlite"

	// LedgerMemory forgets every record when the process exits.
	LedgerMemory LedgerBackend = "memory"
)

// IsValid returns true if the ledger backend is recognised.
func (b LedgerBackend) IsValid() bool {
	switch b {
	case LedgerJSON, LedgerSQLite, LedgerMemory:
		return true
	default:
		return false
	}
}

// SourceSettings configures the document source.
type SourceSettings struct {
	// Kind selects the connector.
	Kind SourceKind

	// LocalPath is the documents folder for the local source.
	LocalPath string

	// Extensions are the file extensions the local source picks up.
	Extensions []string

	// DriveFolderID is the Drive folder to index.
	DriveFolderID string

	// ServiceAccountFile is the path to the service-account JSON key.
	ServiceAccountFile string

	// PollInterval is how often the Drive watcher re-lists the folder.
	PollInterval time.Duration
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is the provider API key.
	APIKey string

	// Dimensions is the embedding vector size. Zero means the model default.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// Backend selects the store.
	Backend VectorBackend

	// Path is the persistence directory for the chroma backend.
	Path string

	// Collection is the chroma collection name.
	Collection string

	// APIKey is the Pinecone API key.
	APIKey string

	// Environment is the Pinecone serverless region.
	Environment string

	// IndexName is the Pinecone index.
	IndexName string

	// Namespace is the Pinecone namespace.
	Namespace string
}

// LLMSettings holds chat model configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the chat model name.
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is the provider API key.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings controls how documents are split before embedding.
type ChunkingSettings struct {
	// Size is the chunk length in characters.
	Size int

	// Overlap is how many characters consecutive chunks share.
	Overlap int

	// Processors names the post-processing stages in order. The first
	// stage must create chunks.
	Processors []string
}

// SyncSettings controls update passes.
type SyncSettings struct {
	// Interval is the period between scheduled updates.
	Interval time.Duration

	// UpsertRate is the maximum number of upserts per second.
	UpsertRate float64

	// Ledger selects the processed-file store.
	Ledger LedgerBackend

	// LedgerPath is the ledger file (processed_files.json or a sqlite database).
	LedgerPath string
}

// ChatSettings controls retrieval and generation.
type ChatSettings struct {
	// TopK is how many chunks are retrieved per question.
	TopK int

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the answer length.
	MaxTokens int

	// HistoryTurns is how many previous exchanges the REPL sends along.
	HistoryTurns int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Source      SourceSettings
	Embedding   EmbeddingSettings
	VectorStore VectorStoreSettings
	LLM         LLMSettings
	Chunking    ChunkingSettings
	Sync        SyncSettings
	Chat        ChatSettings
}

// Chunking and chat defaults.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
	DefaultTopK         = 3
	DefaultTemperature  = 0.2
	DefaultMaxTokens    = 512
	DefaultUpsertRate   = 10
	DefaultCollection   = "documents"
	DefaultNamespace    = "default"
	DefaultLedgerFile   = "processed_files.json"
	DefaultDocumentsDir = "documents"
)

// DefaultAppSettings returns the local preset: a documents folder,
// an embedded chroma store and OpenAI for embeddings and chat.
// dataDir is where the vector store and ledger are kept.
func DefaultAppSettings(dataDir string) AppSettings {
	return AppSettings{
		Source: SourceSettings{
			Kind:         SourceLocal,
			LocalPath:    DefaultDocumentsDir,
			Extensions:   []string{".txt"},
			PollInterval: 5 * time.Minute,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
		},
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendChroma,
			Path:       filepath.Join(dataDir, "chroma_db"),
			Collection: DefaultCollection,
			Namespace:  DefaultNamespace,
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultLLMModels()[AIProviderOpenAI],
		},
		Chunking: ChunkingSettings{
			Size:       DefaultChunkSize,
			Overlap:    DefaultChunkOverlap,
			Processors: []string{"chunker"},
		},
		Sync: SyncSettings{
			Interval:   DefaultUpdateInterval,
			UpsertRate: DefaultUpsertRate,
			Ledger:     LedgerJSON,
			LedgerPath: filepath.Join(dataDir, DefaultLedgerFile),
		},
		Chat: ChatSettings{
			TopK:        DefaultTopK,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
		},
	}
}

// ApplyDrivePreset switches settings to Drive, Gemini embeddings,
// Pinecone and Groq chat.
func (s *AppSettings) ApplyDrivePreset() {
	s.Source.Kind = SourceGoogleDrive
	s.Embedding.Provider = AIProviderGemini
	s.Embedding.Model = DefaultEmbeddingModels()[AIProviderGemini]
	s.VectorStore.Backend = VectorBackendPinecone
	s.LLM.Provider = AIProviderGroq
	s.LLM.Model = DefaultLLMModels()[AIProviderGroq]
}

// Missing returns the names of required settings that are unset, as the
// environment variables a user would set to supply them.
func (s *AppSettings) Missing() []string {
	var missing []string
	add := func(cond bool, name string) {
		if cond {
			missing = append(missing, name)
		}
	}

	if s.Source.Kind == SourceGoogleDrive {
		add(s.Source.ServiceAccountFile == "", EnvDriveServiceAccount)
		add(s.Source.DriveFolderID == "", EnvDriveFolderID)
	}
	if s.VectorStore.Backend == VectorBackendPinecone {
		add(s.VectorStore.APIKey == "", EnvPineconeAPIKey)
		add(s.VectorStore.Environment == "", EnvPineconeEnv)
		add(s.VectorStore.IndexName == "", EnvPineconeIndex)
	}
	if s.Embedding.Provider.RequiresAPIKey() {
		add(s.Embedding.APIKey == "", s.Embedding.Provider.APIKeyEnv())
	}
	if s.LLM.Provider.RequiresAPIKey() && s.LLM.APIKey == "" {
		name := s.LLM.Provider.APIKeyEnv()
		if !contains(missing, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// EmbeddingDims returns the configured dimensions or the model default.
func (s *AppSettings) EmbeddingDims() int {
	if s.Embedding.Dimensions > 0 {
		return s.Embedding.Dimensions
	}
	return EmbeddingDimensions()[s.Embedding.Model]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderGemini,
		AIProviderOllama,
	}
}

// AllLLMProviders returns providers that support chat.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderGemini,
		AIProviderGroq,
		AIProviderOllama,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
		AIProviderOllama: "nomic-embed-text",
	}
}

// DefaultLLMModels returns default models for each chat provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderGemini:    "gemini-1.5-flash",
		AIProviderGroq:      "deepseek-r1-distill-llama-70b",
		AIProviderOllama:    "llama3.2",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Gemini
		"text-embedding-004": 768,
		// Ollama
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
