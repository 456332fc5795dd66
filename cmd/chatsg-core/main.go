// ABOUTME: Entry point for the chatsg-core dispatch server.
// ABOUTME: Wires config, store, selector, cache, dispatcher, sessions, and the HTTP gateway.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/CrossGen-ai/chatSG-sub001/internal/agent"
	"github.com/CrossGen-ai/chatSG-sub001/internal/config"
	"github.com/CrossGen-ai/chatSG-sub001/internal/dispatch"
	"github.com/CrossGen-ai/chatSG-sub001/internal/gateway"
	"github.com/CrossGen-ai/chatSG-sub001/internal/selector"
	"github.com/CrossGen-ai/chatSG-sub001/internal/session"
	"github.com/CrossGen-ai/chatSG-sub001/internal/store"
)

// Version is set at build time.
var version = "dev"

// getConfigPath returns the path to the config file.
// Priority: CHATSG_CONFIG env var > XDG_CONFIG_HOME/chatsg/core.yaml > ~/.config/chatsg/core.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CHATSG_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "core.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "chatsg", "core.yaml")
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println("chatsg-core", version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting chatsg-core", "version", version)

	// Transcript store
	var turns store.TurnStore
	if cfg.Database.Path != "" {
		sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer sqlStore.Close()
		turns = sqlStore
	} else {
		logger.Warn("no database path configured, transcripts disabled")
	}

	// Selector from the keyword pack
	pack, err := selector.LoadPack(cfg.Dispatch.KeywordPack)
	if err != nil {
		return fmt.Errorf("loading keyword pack: %w", err)
	}
	sel, err := selector.New(pack)
	if err != nil {
		return fmt.Errorf("building selector: %w", err)
	}

	// Agent factory over the configured types. The static completer stands in
	// until a provider-backed Completer is wired via agent registration.
	factory := agent.NewFactory(sel.Types(), &agent.StaticCompleter{}, logger)

	// Dispatcher and cache reference each other through hooks, so the
	// dispatcher variable is captured before the cache is built.
	var dispatcher *dispatch.Dispatcher
	cache := agent.NewCache(agent.CacheConfig{
		Capacity:      cfg.Cache.Capacity,
		IdleTimeout:   cfg.Cache.IdleTimeout,
		SweepInterval: cfg.Cache.SweepInterval,
		OnCreate:      func(t agent.Type) { dispatcher.NoteCreated(t) },
		OnEvict:       func(t agent.Type) { dispatcher.NoteEvicted(t) },
	}, factory, logger)
	defer cache.Close()

	dispatcher = dispatch.New(dispatch.Config{
		ConfidenceThreshold: cfg.Dispatch.ConfidenceThreshold,
		HybridFallback:      cfg.Dispatch.HybridFallback,
		DefaultAgentType:    agent.Type(cfg.Dispatch.DefaultAgentType),
	}, sel, cache, logger)

	registry := session.NewRegistry(logger)
	coordinator := session.NewCoordinator(registry, dispatcher, turns, cfg.Session.RequestTimeout, logger)

	gw := gateway.New(gateway.Options{HTTPAddr: cfg.Server.HTTPAddr},
		coordinator, registry, dispatcher, cache, turns, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gw.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("draining in-flight turns")
	coordinator.Wait()
	logger.Info("shutdown complete")
	return nil
}

// setupLogger builds the process logger from config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
