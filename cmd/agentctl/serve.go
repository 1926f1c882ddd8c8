package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/config"
	"github.com/agentspine/spine/internal/eventbus"
	"github.com/agentspine/spine/internal/httpapi"
	"github.com/agentspine/spine/internal/infrastructure/logger"
	"github.com/agentspine/spine/internal/llm"
	"github.com/agentspine/spine/internal/persistence"
	"github.com/agentspine/spine/internal/pipeline"
	"github.com/agentspine/spine/internal/session"
	"github.com/agentspine/spine/internal/tool"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Control Plane (session + pipeline HTTP/WebSocket API)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if err := config.Bootstrap(log); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	log.Info("starting agentspine control plane",
		zap.String("gateway_addr", fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)),
	)

	registry := llm.NewRegistry()
	if len(cfg.Agent.Providers) == 0 {
		log.Warn("no providers configured; sessions will fail to route completions until one is registered")
	}
	client := llm.NewClient(registry,
		llm.WithDefaultProvider(cfg.Agent.DefaultProvider),
		llm.WithLogger(log),
		llm.WithRetryPolicy(llm.RetryPolicy{
			MaxAttempts: cfg.Agent.Runtime.MaxRetries,
			Base:        cfg.Agent.Runtime.RetryBaseWait,
			Multiplier:  2,
			Max:         cfg.Agent.Runtime.RunTimeout,
			Jitter:      true,
		}),
	)

	defaultProfile := &session.Profile{
		Provider:              cfg.Agent.DefaultProvider,
		Model:                 cfg.Agent.DefaultModel,
		Tools:                 tool.NewRegistry(),
		ContextWindowSize:     cfg.Agent.ContextWindowSize,
		MaxToolRoundsPerInput: cfg.Agent.MaxToolRoundsPerInput,
		MaxTurns:              cfg.Agent.MaxTurns,
		MaxSubagentDepth:      cfg.Agent.MaxSubagentDepth,
	}

	store, err := persistence.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open persistence store: %w", err)
	}
	mirror := persistence.NewMirror(persistence.NewStore(store), log)

	bus := eventbus.NewInMemoryBus(log, 256)
	defer bus.Close()
	mirror.Attach(bus)

	sessions := httpapi.NewSessionManager(client, nil, defaultProfile, log)

	engine := pipeline.NewEngine(log)
	pipelines := httpapi.NewPipelineManager(engine, cfg.Pipeline.LogsRoot, log)

	watcher, err := config.NewWatcher(log, func(reloaded *config.Config) {
		log.Info("configuration reloaded", zap.String("default_model", reloaded.Agent.DefaultModel))
	})
	if err != nil {
		return fmt.Errorf("init config watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	defer watcher.Close()

	server := httpapi.NewServer(httpapi.Config{
		Host: cfg.Gateway.Host,
		Port: cfg.Gateway.Port,
		Mode: cfg.Gateway.Mode,
	}, sessions, pipelines, log)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start control plane: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}
