package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonathan/mathmotion/internal/config"
	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/llm"
	"github.com/jonathan/mathmotion/internal/logger"
	"github.com/jonathan/mathmotion/internal/pipeline"
	"github.com/jonathan/mathmotion/internal/publish"
	"github.com/jonathan/mathmotion/internal/render"
	"github.com/jonathan/mathmotion/internal/scriptgen"
)

// app is the wired dependency graph shared by the commands.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *db.DB
	llm      llm.Client
	invoker  *render.Invoker
	pipeline *pipeline.Pipeline
	closers  []func()
}

// loadConfig loads and validates configuration, failing on any missing credential.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	return cfg, nil
}

// newApp connects every collaborator. Close releases them.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, log: logger.New(cfg.Server.LogLevel)}

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = database
	a.closers = append(a.closers, database.Close)

	client, err := llm.NewClient(ctx, cfg.LLMClientConfig(scriptgen.SystemInstruction()), cfg.LLM.APIKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.llm = client
	a.closers = append(a.closers, func() { _ = client.Close() })

	publisher, err := publish.New(ctx, cfg.PublisherConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	if c, ok := publisher.(io.Closer); ok {
		a.closers = append(a.closers, func() { _ = c.Close() })
	}

	a.invoker = render.NewInvoker(cfg.RenderInvokerConfig(), a.log)
	a.pipeline = pipeline.New(pipeline.Deps{
		Generator:      scriptgen.New(client, cfg.LLM.Timeout),
		Renderer:       a.invoker,
		Publisher:      publisher,
		Tracker:        database,
		Cleaner:        render.NewCleaner(a.log),
		Logger:         a.log,
		PublishTimeout: cfg.Media.PublishTimeout,
	})

	a.log.Debug("app ready",
		"model", client.GetModel(llm.TierStandard),
		"media_host", publisher.Name(),
		"render_command", cfg.Render.Command,
	)
	return a, nil
}

// Close releases collaborators in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
