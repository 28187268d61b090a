package cli

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

type mockUpdater struct {
	report   *domain.UpdateReport
	err      error
	status   *domain.UpdateReport
	files    []domain.ProcessedFile
	filesErr error
	resetErr error
	resets   int
}

func (m *mockUpdater) Update(_ context.Context) (*domain.UpdateReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &domain.UpdateReport{}, nil
	}
	return m.report, nil
}

func (m *mockUpdater) Status() *domain.UpdateReport { return m.status }

func (m *mockUpdater) ProcessedFiles(_ context.Context) ([]domain.ProcessedFile, error) {
	return m.files, m.filesErr
}

func (m *mockUpdater) Reset(_ context.Context) error {
	m.resets++
	return m.resetErr
}

type mockChat struct {
	answer    *domain.Answer
	err       error
	questions []string
	histories [][]domain.Exchange
}

func (m *mockChat) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	return m.AskWithHistory(ctx, question, nil)
}

func (m *mockChat) AskWithHistory(
	_ context.Context, question string, history []domain.Exchange,
) (*domain.Answer, error) {
	m.questions = append(m.questions, question)
	m.histories = append(m.histories, history)
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Question: question, Text: "answer to " + question, Grounded: true}, nil
}

func (m *mockChat) ModelName() string { return "test-model" }

type mockScheduler struct {
	mu         sync.Mutex
	started    bool
	stopped    bool
	triggers   []string
	queued     bool
	last       *domain.UpdateRun
	history    []domain.UpdateRun
	historyErr error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockScheduler) Trigger(reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, reason)
	if m.queued {
		return false
	}
	m.queued = true
	return true
}

func (m *mockScheduler) LastRun() *domain.UpdateRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *mockScheduler) History(_ context.Context, limit int) ([]domain.UpdateRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && len(m.history) > limit {
		return m.history[:limit], m.historyErr
	}
	return m.history, m.historyErr
}

type mockSettings struct {
	values    map[string]string
	settings  *domain.AppSettings
	validErr  error
	setErr    error
	sets      map[string]string
	overrides map[string]string
}

func newMockSettings() *mockSettings {
	s := domain.DefaultAppSettings("/tmp/docrag")
	return &mockSettings{
		values:    map[string]string{},
		settings:  &s,
		sets:      map[string]string{},
		overrides: map[string]string{},
	}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) { return m.settings, nil }
func (m *mockSettings) Validate() error                   { return m.validErr }

func (m *mockSettings) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets[key] = value
	m.values[key] = value
	return nil
}

func (m *mockSettings) Lookup(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrInvalidInput
	}
	return v, nil
}

func (m *mockSettings) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockSettings) Override(key, value string) error {
	m.overrides[key] = value
	return nil
}

func (m *mockSettings) ConfigPath() string { return "/tmp/docrag/config.toml" }

type mockPrompts struct {
	prompts map[string]string
	resets  []string
}

func (m *mockPrompts) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPrompts) Path(name string) string { return "/tmp/docrag/prompts/" + name + ".txt" }

func (m *mockPrompts) Reset(name string) error {
	m.resets = append(m.resets, name)
	return nil
}

func (m *mockPrompts) Names() []string {
	names := make([]string, 0, len(m.prompts))
	for n := range m.prompts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *mockPrompts) Reload() {}

var (
	_ driving.Updater         = (*mockUpdater)(nil)
	_ driving.ChatService     = (*mockChat)(nil)
	_ driving.Scheduler       = (*mockScheduler)(nil)
	_ driving.SettingsService = (*mockSettings)(nil)
)

// resetFlags restores flag variables left set by earlier executions.
func resetFlags() {
	verbose = false
	ephemeral = false
	updateProgress = false
	watchInterval = 0
	chatTUI = false
	chatSources = false
	askSources = false
	askJSON = false
	resetYes = false
	versionShort = false
	mcpPort = 0
	mcpHost = "127.0.0.1"
}

// execute runs the root command against svc with the given stdin.
func execute(t *testing.T, svc *Services, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	loaded = svc

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		loaded = nil
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// withSettings installs s as the settings service for the test.
func withSettings(t *testing.T, s driving.SettingsService) {
	t.Helper()
	prev := settingsService
	settingsService = s
	t.Cleanup(func() { settingsService = prev })
}
