package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/channels/cli"
	"github.com/omegacore/omega/internal/channels/telegram"
	"github.com/omegacore/omega/internal/channels/whatsapp"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/gateway"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/internal/sandbox"
)

// defaultConfigPath is where `omega init` writes config.toml and where
// every other subcommand looks for it absent --config.
const defaultConfigPath = "config.toml"

// defaultStatusAddr is the local HTTP listener `omega status` talks to.
const defaultStatusAddr = "127.0.0.1:7787"

func buildStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the agent gateway",
		Long: `Start loads config.toml, opens the memory store, builds the
configured channel listeners and LLM provider, and runs the gateway
(message pipeline, scheduler, summarizer, heartbeat) until interrupted.

Only one omega instance may run against a given config at a time; a
second start will fail fast rather than silently double-process
messages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config.toml")
	return cmd
}

func runStart(ctx context.Context, configPath string) error {
	logger := slog.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock, err := gateway.AcquireLock(gateway.LockOptions{ConfigPath: configPath})
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := memory.Open(cfg.Memory.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}

	pc, ok := cfg.Provider.Providers[cfg.Provider.Default]
	if !ok {
		return fmt.Errorf("provider %q is not configured", cfg.Provider.Default)
	}
	sandboxCfg := sandbox.Config{DataDir: cfg.Omega.DataDir, ConfigPath: configPath, Mode: cfg.Sandbox.Mode}
	guard := sandbox.NewGuard(sandboxCfg)
	prov, sel, err := provider.New(ctx, config.ProviderKind(cfg.Provider.Default), pc, guard, sandboxCfg, cfg.Omega.DataDir, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("build provider: %w", err)
	}

	listeners, err := buildListeners(cfg, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("build channel listeners: %w", err)
	}
	if len(listeners) == 0 {
		logger.Warn("no channels enabled in config; the agent will be unreachable")
	}

	gw := gateway.New(cfg, configPath, store, prov, sel, guard, listeners, logger)
	statusSrv := gateway.NewStatusServer(gw, defaultStatusAddr)

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- gw.Run(runCtx) }()
	go func() { errCh <- statusSrv.ListenAndServe(runCtx) }()

	logger.Info("omega started", "name", cfg.Omega.Name, "channels", len(listeners), "status_addr", defaultStatusAddr)

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildListeners constructs one channels.Listener per enabled
// [channel.*] table, matching each config name to the adapter that
// implements it.
func buildListeners(cfg *config.Config, logger *slog.Logger) ([]channels.Listener, error) {
	var listeners []channels.Listener
	for name, cc := range cfg.Channel {
		if !cc.Enabled {
			continue
		}
		switch name {
		case "telegram":
			if cc.Token == "" {
				return nil, fmt.Errorf("channel.telegram requires a token")
			}
			listeners = append(listeners, telegram.New(cc, logger))
		case "whatsapp":
			dbPath := cc.Credentials["db_path"]
			if dbPath == "" {
				dbPath = cfg.Omega.DataDir + "/data/whatsapp.db"
			}
			listeners = append(listeners, whatsapp.New(dbPath, logger))
		case "cli":
			senderID := "local"
			if len(cc.AllowedUsers) > 0 {
				senderID = cc.AllowedUsers[0]
			}
			listeners = append(listeners, cli.New(os.Stdin, os.Stdout, senderID))
		default:
			return nil, fmt.Errorf("unknown channel %q", name)
		}
	}
	return listeners, nil
}
