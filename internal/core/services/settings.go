package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Presets selectable with the "preset" key.
const (
	PresetLocal = "local"
	PresetDrive = "drive"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyPreset           = "preset"
	keySourceKind       = "source.kind"
	keySourcePath       = "source.path"
	keySourceExtensions = "source.extensions"
	keyDriveFolderID    = "source.drive_folder_id"
	keyServiceAccount   = "source.service_account_file"
	keyPollInterval     = "source.poll_interval"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyVectorBackend    = "vectorstore.backend"
	keyVectorPath       = "vectorstore.path"
	keyVectorCollection = "vectorstore.collection"
	keyPineconeAPIKey   = "vectorstore.api_key"
	keyPineconeEnv      = "vectorstore.environment"
	keyPineconeIndex    = "vectorstore.index_name"
	keyPineconeNS       = "vectorstore.namespace"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyChunkSize        = "chunking.size"
	keyChunkOverlap     = "chunking.overlap"
	keyChunkProcessors  = "chunking.processors"
	keySyncInterval     = "sync.interval"
	keyUpsertRate       = "sync.upsert_rate"
	keyLedger           = "sync.ledger"
	keyLedgerPath       = "sync.ledger_path"
	keyTopK             = "chat.top_k"
	keyTemperature      = "chat.temperature"
	keyMaxTokens        = "chat.max_tokens"
	keyHistoryTurns     = "chat.history_turns"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindList
)

// setting describes one settable key.
type setting struct {
	key    string
	kind   valueKind
	secret bool
	// env returns the conventional variable for the key, if any.
	env   func(*domain.AppSettings) string
	apply func(*domain.AppSettings, string) error
	show  func(*domain.AppSettings) string
}

func fixedEnv(name string) func(*domain.AppSettings) string {
	return func(*domain.AppSettings) string { return name }
}

// settingTable lists every key in resolution order: providers resolve before
// their models and API keys.
var settingTable = []setting{
	{
		key: keySourceKind,
		apply: func(s *domain.AppSettings, v string) error {
			k := domain.SourceKind(v)
			if !k.IsValid() {
				return fmt.Errorf("%w: source kind %q", domain.ErrUnsupportedType, v)
			}
			s.Source.Kind = k
			return nil
		},
		show: func(s *domain.AppSettings) string { return s.Source.Kind.String() },
	},
	{
		key:   keySourcePath,
		apply: func(s *domain.AppSettings, v string) error { s.Source.LocalPath = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.Source.LocalPath },
	},
	{
		key:  keySourceExtensions,
		kind: kindList,
		apply: func(s *domain.AppSettings, v string) error {
			var exts []string
			for _, e := range splitList(v) {
				e = strings.ToLower(e)
				if !strings.HasPrefix(e, ".") {
					e = "." + e
				}
				exts = append(exts, e)
			}
			if len(exts) == 0 {
				return fmt.Errorf("%w: no extensions", domain.ErrInvalidInput)
			}
			s.Source.Extensions = exts
			return nil
		},
		show: func(s *domain.AppSettings) string { return strings.Join(s.Source.Extensions, ",") },
	},
	{
		key:   keyDriveFolderID,
		env:   fixedEnv(domain.EnvDriveFolderID),
		apply: func(s *domain.AppSettings, v string) error { s.Source.DriveFolderID = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.Source.DriveFolderID },
	},
	{
		key:   keyServiceAccount,
		env:   fixedEnv(domain.EnvDriveServiceAccount),
		apply: func(s *domain.AppSettings, v string) error { s.Source.ServiceAccountFile = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.Source.ServiceAccountFile },
	},
	{
		key:  keyPollInterval,
		kind: kindDuration,
		apply: func(s *domain.AppSettings, v string) error {
			d, err := parseDuration(v)
			s.Source.PollInterval = d
			return err
		},
		show: func(s *domain.AppSettings) string { return s.Source.PollInterval.String() },
	},
	{
		key: keyEmbedProvider,
		apply: func(s *domain.AppSettings, v string) error {
			p := domain.AIProvider(v)
			if !p.SupportsEmbeddings() {
				return fmt.Errorf("%w: embedding provider %q (use one of %v)", domain.ErrUnsupportedType, v, domain.AllEmbeddingProviders())
			}
			if p != s.Embedding.Provider {
				s.Embedding.Provider = p
				s.Embedding.Model = domain.DefaultEmbeddingModels()[p]
			}
			return nil
		},
		show: func(s *domain.AppSettings) string { return s.Embedding.Provider.String() },
	},
	{
		key:   keyEmbedModel,
		apply: func(s *domain.AppSettings, v string) error { s.Embedding.Model = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.Embedding.Model },
	},
	{
		key:   keyEmbedBaseURL,
		apply: func(s *domain.AppSettings, v string) error { s.Embedding.BaseURL = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.Embedding.BaseURL },
	},
	{
		key:    keyEmbedAPIKey,
		secret: true,
		env:    func(s *domain.AppSettings) string { return s.Embedding.Provider.APIKeyEnv() },
		apply:  func(s *domain.AppSettings, v string) error { s.Embedding.APIKey = v; return nil },
		show:   func(s *domain.AppSettings) string { return s.Embedding.APIKey },
	},
	{
		key:  keyEmbedDims,
		kind: kindInt,
		apply: func(s *domain.AppSettings, v string) error {
			n, err := parseNonNegative(v)
			s.Embedding.Dimensions = n
			return err
		},
		show: func(s *domain.AppSettings) string { return strconv.Itoa(s.EmbeddingDims()) },
	},
	{
		key: keyVectorBackend,
		apply: func(s *domain.AppSettings, v string) error {
			b := domain.VectorBackend(v)
			if !b.IsValid() {
				return fmt.Errorf("%w: vector store %q", domain.ErrUnsupportedType, v)
			}
			s.VectorStore.Backend = b
			return nil
		},
		show: func(s *domain.AppSettings) string { return s.VectorStore.Backend.String() },
	},
	{
		key:   keyVectorPath,
		apply: func(s *domain.AppSettings, v string) error { s.VectorStore.Path = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.VectorStore.Path },
	},
	{
		key:   keyVectorCollection,
		apply: func(s *domain.AppSettings, v string) error { s.VectorStore.Collection = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.VectorStore.Collection },
	},
	{
		key:    keyPineconeAPIKey,
		secret: true,
		env:    fixedEnv(domain.EnvPineconeAPIKey),
		apply:  func(s *domain.AppSettings, v string) error { s.VectorStore.APIKey = v; return nil },
		show:   func(s *domain.AppSettings) string { return s.VectorStore.APIKey },
	},
	{
		key:   keyPineconeEnv,
		env:   fixedEnv(domain.EnvPineconeEnv),
		apply: func(s *domain.AppSettings, v string) error { s.VectorStore.Environment = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.VectorStore.Environment },
	},
	{
		key:   keyPineconeIndex,
		env:   fixedEnv(domain.EnvPineconeIndex),
		apply: func(s *domain.AppSettings, v string) error { s.VectorStore.IndexName = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.VectorStore.IndexName },
	},
	{
		key:   keyPineconeNS,
		apply: func(s *domain.AppSettings, v string) error { s.VectorStore.Namespace = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.VectorStore.Namespace },
	},
	{
		key: keyLLMProvider,
		apply: func(s *domain.AppSettings, v string) error {
			p := domain.AIProvider(v)
			if !p.IsValid() {
				return fmt.Errorf("%w: llm provider %q (use one of %v)", domain.ErrUnsupportedType, v, domain.AllLLMProviders())
			}
			if p != s.LLM.Provider {
				s.LLM.Provider = p
				s.LLM.Model = domain.DefaultLLMModels()[p]
			}
			return nil
		},
		show: func(s *domain.AppSettings) string { return s.LLM.Provider.String() },
	},
	{
		key:   keyLLMModel,
		apply: func(s *domain.AppSettings, v string) error { s.LLM.Model = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.LLM.Model },
	},
	{
		key:   keyLLMBaseURL,
		apply: func(s *domain.AppSettings, v string) error { s.LLM.BaseURL = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.LLM.BaseURL },
	},
	{
		key:    keyLLMAPIKey,
		secret: true,
		env:    func(s *domain.AppSettings) string { return s.LLM.Provider.APIKeyEnv() },
		apply:  func(s *domain.AppSettings, v string) error { s.LLM.APIKey = v; return nil },
		show:   func(s *domain.AppSettings) string { return s.LLM.APIKey },
	},
	{
		key:  keyChunkSize,
		kind: kindInt,
		apply: func(s *domain.AppSettings, v string) error {
			n, err := parsePositive(v)
			s.Chunking.Size = n
			return err
		},
		show: func(s *domain.AppSettings) string { return strconv.Itoa(s.Chunking.Size) },
	},
	{
		key:  keyChunkOverlap,
		kind: kindInt,
		apply: func(s *domain.AppSettings, v string) error {
			n, err := parseNonNegative(v)
			s.Chunking.Overlap = n
			return err
		},
		show: func(s *domain.AppSettings) string { return strconv.Itoa(s.Chunking.Overlap) },
	},
	{
		key:  keyChunkProcessors,
		kind: kindList,
		apply: func(s *domain.AppSettings, v string) error {
			names := splitList(v)
			if len(names) == 0 {
				return fmt.Errorf("%w: no processors", domain.ErrInvalidInput)
			}
			s.Chunking.Processors = names
			return nil
		},
		show: func(s *domain.AppSettings) string { return strings.Join(s.Chunking.Processors, ",") },
	},
	{
		key:  keySyncInterval,
		kind: kindDuration,
		apply: func(s *domain.AppSettings, v string) error {
			d, err := parseDuration(v)
			s.Sync.Interval = d
			return err
		},
		show: func(s *domain.AppSettings) string { return s.Sync.Interval.String() },
	},
	{
		key:  keyUpsertRate,
		kind: kindFloat,
		apply: func(s *domain.AppSettings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, v)
			}
			s.Sync.UpsertRate = f
			return nil
		},
		show: func(s *domain.AppSettings) string { return strconv.FormatFloat(s.Sync.UpsertRate, 'g', -1, 64) },
	},
	{
		key: keyLedger,
		apply: func(s *domain.AppSettings, v string) error {
			b := domain.LedgerBackend(v)
			if !b.IsValid() {
				return fmt.Errorf("%w: ledger %q", domain.ErrUnsupportedType, v)
			}
			s.Sync.Ledger = b
			return nil
		},
		show: func(s *domain.AppSettings) string { return string(s.Sync.Ledger) },
	},
	{
		key:   keyLedgerPath,
		apply: func(s *domain.AppSettings, v string) error { s.Sync.LedgerPath = v; return nil },
		show:  func(s *domain.AppSettings) string { return s.Sync.LedgerPath },
	},
	{
		key:  keyTopK,
		kind: kindInt,
		apply: func(s *domain.AppSettings, v string) error {
			n, err := parsePositive(v)
			s.Chat.TopK = n
			return err
		},
		show: func(s *domain.AppSettings) string { return strconv.Itoa(s.Chat.TopK) },
	},
	{
		key:  keyTemperature,
		kind: kindFloat,
		apply: func(s *domain.AppSettings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 || f > 2 {
				return fmt.Errorf("%w: temperature %q must be between 0 and 2", domain.ErrInvalidInput, v)
			}
			s.Chat.Temperature = f
			return nil
		},
		show: func(s *domain.AppSettings) string { return strconv.FormatFloat(s.Chat.Temperature, 'g', -1, 64) },
	},
	{
		key:  keyMaxTokens,
		kind: kindInt,
		apply: func(s *domain.AppSettings, v string) error {
			n, err := parsePositive(v)
			s.Chat.MaxTokens = n
			return err
		},
		show: func(s *domain.AppSettings) string { return strconv.Itoa(s.Chat.MaxTokens) },
	},
	{
		key:  keyHistoryTurns,
		kind: kindInt,
		apply: func(s *domain.AppSettings, v string) error {
			n, err := parseNonNegative(v)
			s.Chat.HistoryTurns = n
			return err
		},
		show: func(s *domain.AppSettings) string { return strconv.Itoa(s.Chat.HistoryTurns) },
	},
}

func lookupSetting(key string) (setting, bool) {
	for _, st := range settingTable {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

// SettingsService resolves settings from flags, the environment, the
// config file and defaults, in that order.
type SettingsService struct {
	configStore driven.ConfigStore
	env         driven.EnvSource
	dataDir     string
	overrides   map[string]string
}

// NewSettingsService creates a settings service. env may be nil.
// dataDir anchors the default vector store and ledger paths.
func NewSettingsService(configStore driven.ConfigStore, env driven.EnvSource, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		env:         env,
		dataDir:     dataDir,
		overrides:   make(map[string]string),
	}
}

// Override sets a value that wins over every other source for this
// process, such as a command-line flag.
func (s *SettingsService) Override(key, value string) error {
	if key != keyPreset {
		if _, ok := lookupSetting(key); !ok {
			return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
		}
	}
	s.overrides[key] = value
	return nil
}

// Get resolves the current settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	out := domain.DefaultAppSettings(s.dataDir)

	preset, err := s.preset()
	if err != nil {
		return nil, err
	}
	if preset == PresetDrive {
		out.ApplyDrivePreset()
	}

	for _, st := range settingTable {
		v, ok := s.resolve(st, &out)
		if !ok {
			continue
		}
		if err := st.apply(&out, v); err != nil {
			return nil, fmt.Errorf("%s: %w", st.key, err)
		}
	}

	// The chunk window must advance by at least one character.
	if out.Chunking.Overlap >= out.Chunking.Size {
		out.Chunking.Overlap = out.Chunking.Size - 1
	}
	return &out, nil
}

// Validate fails with domain.ErrConfigMissing naming every missing variable.
func (s *SettingsService) Validate() error {
	cfg, err := s.Get()
	if err != nil {
		return err
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Set validates value and writes it to the config file.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if key == keyPreset {
		if value != PresetLocal && value != PresetDrive {
			return fmt.Errorf("%w: preset must be %q or %q", domain.ErrInvalidInput, PresetLocal, PresetDrive)
		}
		return s.configStore.Set(key, value)
	}

	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if value == "" {
		return s.configStore.Unset(key)
	}

	scratch := domain.DefaultAppSettings(s.dataDir)
	if err := st.apply(&scratch, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	return s.configStore.Set(key, typedValue(st.kind, value))
}

// Lookup returns the resolved value of key. Secrets are masked.
func (s *SettingsService) Lookup(key string) (string, error) {
	if key == keyPreset {
		return s.preset()
	}
	st, ok := lookupSetting(key)
	if !ok {
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	cfg, err := s.Get()
	if err != nil {
		return "", err
	}
	v := st.show(cfg)
	if st.secret {
		v = MaskSecret(v)
	}
	return v, nil
}

// Keys returns every settable key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingTable)+1)
	keys = append(keys, keyPreset)
	for _, st := range settingTable {
		keys = append(keys, st.key)
	}
	sort.Strings(keys)
	return keys
}

// ConfigPath returns the settings file location.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// preset returns "drive" when chosen explicitly or when a Drive folder is
// configured in the environment, and "local" otherwise.
func (s *SettingsService) preset() (string, error) {
	v, ok := s.resolve(setting{key: keyPreset}, nil)
	if !ok {
		if _, drive := s.lookupEnv(domain.EnvDriveFolderID); drive {
			return PresetDrive, nil
		}
		return PresetLocal, nil
	}
	switch v {
	case PresetLocal, PresetDrive:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown preset %q", domain.ErrInvalidInput, v)
	}
}

// resolve returns the first value set for st among overrides, the
// DOCRAG_* variable, the conventional variable and the config file.
func (s *SettingsService) resolve(st setting, current *domain.AppSettings) (string, bool) {
	if v, ok := s.overrides[st.key]; ok && v != "" {
		return v, true
	}
	if v, ok := s.lookupEnv(domain.SettingEnvVar(st.key)); ok {
		return v, true
	}
	if st.env != nil && current != nil {
		if name := st.env(current); name != "" {
			if v, ok := s.lookupEnv(name); ok {
				return v, true
			}
		}
	}
	raw, ok := s.configStore.Get(st.key)
	if !ok || raw == nil {
		return "", false
	}
	v := configText(raw)
	return v, v != ""
}

func (s *SettingsService) lookupEnv(name string) (string, bool) {
	if s.env == nil {
		return "", false
	}
	return s.env.Lookup(name)
}

// MaskSecret hides all but the last four characters of a secret.
func MaskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", 8) + v[len(v)-4:]
}

func configText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func typedValue(kind valueKind, v string) any {
	switch kind {
	case kindInt:
		n, _ := strconv.Atoi(v)
		return n
	case kindFloat:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case kindList:
		return splitList(v)
	default:
		return v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDuration accepts Go durations ("90m") or whole seconds ("3600").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("%w: duration must be positive", domain.ErrInvalidInput)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q is not a positive duration", domain.ErrInvalidInput, v)
	}
	return d, nil
}

func parsePositive(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q must be a positive integer", domain.ErrInvalidInput, v)
	}
	return n, nil
}

func parseNonNegative(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q must be zero or more", domain.ErrInvalidInput, v)
	}
	return n, nil
}
