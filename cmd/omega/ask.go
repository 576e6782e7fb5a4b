package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/channels/cli"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/pipeline"
	"github.com/omegacore/omega/internal/prompt"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/internal/sandbox"
	"github.com/omegacore/omega/internal/skills"
	"github.com/omegacore/omega/pkg/models"
)

func buildAskCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the agent one question without starting the full gateway",
		Long: `ask runs a single message through the same pipeline a running
gateway would use — memory context, the configured provider, marker
handling — and prints the reply, then exits. It opens the memory store
directly, so it must not be run while "omega start" also has it open.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), configPath, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config.toml")
	return cmd
}

func runAsk(ctx context.Context, configPath, question string, out io.Writer) error {
	logger := slog.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := memory.Open(cfg.Memory.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	pc, ok := cfg.Provider.Providers[cfg.Provider.Default]
	if !ok {
		return fmt.Errorf("provider %q is not configured", cfg.Provider.Default)
	}
	sandboxCfg := sandbox.Config{DataDir: cfg.Omega.DataDir, ConfigPath: configPath, Mode: cfg.Sandbox.Mode}
	guard := sandbox.NewGuard(sandboxCfg)
	prov, sel, err := provider.New(ctx, config.ProviderKind(cfg.Provider.Default), pc, guard, sandboxCfg, cfg.Omega.DataDir, logger)
	if err != nil {
		return fmt.Errorf("build provider: %w", err)
	}

	adapter := cli.New(strings.NewReader(""), out, "local")
	senders := channels.Senders{"cli": adapter}

	tmpl, err := prompt.LoadTemplate(cfg.Omega.DataDir + "/prompts/SYSTEM_PROMPT.md")
	if err != nil {
		logger.Warn("loading system prompt template failed, using built-in defaults", "error", err)
	}

	p := pipeline.New(pipeline.Pipeline{
		Memory:          store,
		Skills:          skills.NewManager(cfg.Omega.DataDir+"/skills", logger),
		DataDir:         cfg.Omega.DataDir,
		Config:          cfg,
		ConfigPath:      configPath,
		Provider:        prov,
		Selection:       sel,
		Senders:         senders,
		Template:        tmpl,
		WelcomePath:     cfg.Omega.DataDir + "/prompts/WELCOME.toml",
		Logger:          logger,
		AttachmentInbox: cfg.Omega.DataDir + "/attachments",
	})

	p.Handle(ctx, models.IncomingMessage{
		Channel:     models.ChannelCLI,
		SenderID:    "local",
		ReplyTarget: "local",
		Text:        question,
		ReceivedAt:  time.Now(),
	})
	return nil
}
