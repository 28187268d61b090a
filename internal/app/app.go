// Package app is the composition root: it resolves settings and wires the
// adapters into the core services the CLI runs against.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/docrag/internal/adapters/driven/config/env"
	"github.com/custodia-labs/docrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage"
	"github.com/custodia-labs/docrag/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/docrag/internal/connectors"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/services"
	"github.com/custodia-labs/docrag/internal/logger"
	"github.com/custodia-labs/docrag/internal/normalisers"
	"github.com/custodia-labs/docrag/internal/postprocessors"
)

// Options locate the configuration.
type Options struct {
	// HomeDir holds config.toml, prompts and the default data files.
	// Empty means $DOCRAG_HOME or ~/.docrag.
	HomeDir string

	// DotEnv is the .env file to read. Empty means ".env".
	DotEnv string

	// Version is reported by the version command.
	Version string
}

// App holds the configuration layer, which is cheap to create, and builds
// the heavier services on demand.
type App struct {
	version  string
	env      *env.Overlay
	config   *file.ConfigStore
	prompts  *file.PromptStore
	settings *services.SettingsService
}

// New opens the config file and environment overlay.
func New(opts Options) (*App, error) {
	home := opts.HomeDir
	if home == "" {
		dir, err := file.HomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		home = dir
	}

	overlay, err := env.New(opts.DotEnv)
	if err != nil {
		return nil, err
	}
	config, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	prompts, err := file.NewPromptStore(filepath.Join(home, file.PromptDirName))
	if err != nil {
		return nil, err
	}

	return &App{
		version:  opts.Version,
		env:      overlay,
		config:   config,
		prompts:  prompts,
		settings: services.NewSettingsService(config, overlay, home),
	}, nil
}

// CLIConfig returns the configuration for cli.Configure.
func (a *App) CLIConfig() cli.Config {
	return cli.Config{
		Version:  a.version,
		Settings: a.settings,
		Prompts:  a.prompts,
		Env:      a.env,
		Build:    a.Build,
		Check:    a.Check,
	}
}

// Check pings the source and both AI providers with the resolved settings.
func (a *App) Check(ctx context.Context) []cli.Check {
	cfg, err := a.settings.Get()
	if err != nil {
		return []cli.Check{{Name: "settings", Err: err}}
	}

	checks := []cli.Check{{Name: "source", Err: checkSource(ctx, cfg.Source)}}
	checks = append(checks,
		cli.Check{Name: "embedding", Err: ai.ValidateEmbeddingConfig(ctx, cfg.Embedding)},
		cli.Check{Name: "llm", Err: ai.ValidateLLMConfig(ctx, cfg.LLM)},
	)
	return checks
}

func checkSource(ctx context.Context, s domain.SourceSettings) error {
	connector, err := connectors.New(ctx, s)
	if err != nil {
		return err
	}
	defer connector.Close() //nolint:errcheck
	return connector.Validate(ctx)
}

// Build validates the settings and wires every service. The returned
// Close releases everything Build opened.
func (a *App) Build(ctx context.Context) (*cli.Services, error) {
	if err := a.settings.Validate(); err != nil {
		return nil, err
	}
	cfg, err := a.settings.Get()
	if err != nil {
		return nil, err
	}

	var closers closeStack
	fail := func(err error) (*cli.Services, error) {
		if cerr := closers.Close(); cerr != nil {
			logger.Warn("cleanup after failed start: %v", cerr)
		}
		return nil, err
	}

	logger.Section("Startup")
	logger.Debug("source=%s embedding=%s/%s store=%s llm=%s/%s",
		cfg.Source.Kind, cfg.Embedding.Provider, cfg.Embedding.Model,
		cfg.VectorStore.Backend, cfg.LLM.Provider, cfg.LLM.Model)

	connector, err := connectors.New(ctx, cfg.Source)
	if err != nil {
		return fail(fmt.Errorf("open source: %w", err))
	}
	closers.push(connector.Close)
	if err := connector.Validate(ctx); err != nil {
		return fail(fmt.Errorf("source %s: %w", connector.SourceID(), err))
	}

	embedder, err := ai.CreateEmbeddingService(ctx, cfg.Embedding)
	if err != nil {
		return fail(fmt.Errorf("embedding: %w", err))
	}
	closers.push(embedder.Close)

	llm, err := ai.CreateLLMService(ctx, cfg.LLM)
	if err != nil {
		return fail(fmt.Errorf("llm: %w", err))
	}
	closers.push(llm.Close)

	store, err := vectorstore.New(ctx, cfg.VectorStore, cfg.EmbeddingDims())
	if err != nil {
		return fail(fmt.Errorf("vector store: %w", err))
	}
	closers.push(store.Close)

	stores, err := storage.Open(cfg.Sync)
	if err != nil {
		return fail(fmt.Errorf("ledger: %w", err))
	}
	closers.push(stores.Close)

	pipeline, err := buildPipeline(cfg.Chunking)
	if err != nil {
		return fail(err)
	}

	updater := services.NewUpdateService(
		connector,
		normalisers.NewDefaultRegistry(),
		pipeline,
		embedder,
		store,
		stores.Ledger,
		services.WithUpsertRate(cfg.Sync.UpsertRate),
	)
	chat := services.NewChatAgent(embedder, store, llm, a.prompts, cfg.Chat)
	scheduler := services.NewScheduler(cfg.Sync.Interval, stores.Scheduler, updater,
		services.WithWatcher(connector))

	return &cli.Services{
		Updater:   updater,
		Chat:      chat,
		Scheduler: scheduler,
		Close:     closers.Close,
	}, nil
}

func buildPipeline(chunking domain.ChunkingSettings) (driven.PostProcessorPipeline, error) {
	pipeline, err := postprocessors.BuildPipeline(postprocessors.DefaultRegistry(), chunking)
	if err != nil {
		return nil, err
	}
	logger.Debug("postprocess: %v", pipeline.Names())
	return pipeline, nil
}

// closeStack closes resources in reverse order of opening.
type closeStack []func() error

func (s *closeStack) push(fn func() error) {
	*s = append(*s, fn)
}

// Close runs every closer once, joining their errors.
func (s *closeStack) Close() error {
	var errs []error
	for i := len(*s) - 1; i >= 0; i-- {
		if err := (*s)[i](); err != nil {
			errs = append(errs, err)
		}
	}
	*s = nil
	return errors.Join(errs...)
}
