// Package cli provides the docrag command-line interface.
package cli

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// envDebug enables verbose logging when set to a true value.
const envDebug = "DOCRAG_DEBUG"

// version is set at build time via -ldflags.
var version = "dev"

// Services are the core services a command runs against.
type Services struct {
	Updater   driving.Updater
	Chat      driving.ChatService
	Scheduler driving.Scheduler

	// Close releases the connector, stores and AI clients.
	Close func() error
}

// Builder creates services from the resolved settings. It runs once per
// process, after flags have been applied as overrides.
type Builder func(ctx context.Context) (*Services, error)

// Check is the outcome of one connectivity check.
type Check struct {
	Name string
	Err  error
}

// Checker pings the configured source and providers.
type Checker func(ctx context.Context) []Check

// Config wires the CLI to the application.
type Config struct {
	Version  string
	Settings driving.SettingsService
	Prompts  driven.PromptStore
	Env      driven.EnvSource
	Build    Builder
	Check    Checker
}

var (
	settingsService driving.SettingsService
	promptStore     driven.PromptStore
	envSource       driven.EnvSource
	buildServices   Builder
	runChecks       Checker

	// loaded is built on first use by commands that need it.
	loaded *Services

	verbose   bool
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Chat with your company documents",
	Long: `docrag keeps a vector index in step with a folder of documents, on disk
or in Google Drive, and answers questions from it with an LLM.

Run 'docrag update' to index the folder, then 'docrag chat' to ask questions.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging ("+envDebug+"=1)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep vectors and the ledger in memory for this run")
}

// Configure sets the services and stores used by commands.
func Configure(cfg Config) {
	if cfg.Version != "" {
		version = cfg.Version
	}
	settingsService = cfg.Settings
	promptStore = cfg.Prompts
	envSource = cfg.Env
	buildServices = cfg.Build
	runChecks = cfg.Check
	loaded = nil
}

// Execute runs the root command. Command output goes to stdout and logs
// to stderr, so answers can be piped.
func Execute(ctx context.Context) error {
	defer logger.Sync()
	rootCmd.SetOut(os.Stdout)
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := closeServices(); err == nil {
		err = closeErr
	}
	return err
}

func prepare(_ *cobra.Command, _ []string) error {
	if verbose || debugFromEnv() {
		logger.SetVerbose(true)
	}
	if ephemeral {
		return useMemoryStores()
	}
	return nil
}

// useMemoryStores points the vector store and ledger at process memory.
func useMemoryStores() error {
	if settingsService == nil {
		return errors.New("settings not configured")
	}
	if err := settingsService.Override("vectorstore.backend", string(domain.VectorBackendMemory)); err != nil {
		return err
	}
	return settingsService.Override("sync.ledger", string(domain.LedgerMemory))
}

func debugFromEnv() bool {
	if envSource == nil {
		return false
	}
	v, ok := envSource.Lookup(envDebug)
	if !ok {
		return false
	}
	on, err := strconv.ParseBool(v)
	return err == nil && on
}

// loadServices builds the services on first use.
func loadServices(cmd *cobra.Command) (*Services, error) {
	if loaded != nil {
		return loaded, nil
	}
	if buildServices == nil {
		return nil, errors.New("services not configured")
	}
	s, err := buildServices(cmd.Context())
	if err != nil {
		return nil, err
	}
	loaded = s
	return s, nil
}

func closeServices() error {
	s := loaded
	loaded = nil
	if s == nil || s.Close == nil {
		return nil
	}
	return s.Close()
}
