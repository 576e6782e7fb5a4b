// Package main provides the CLI entry point for omega, a personal AI
// agent runtime that bridges messaging channels to an LLM provider
// behind a local memory store and an OS-level sandbox.
//
// # Basic usage
//
// Start the agent:
//
//	omega start --config config.toml
//
// Check whether a running agent is reachable:
//
//	omega status
//
// Ask a one-shot question without starting the full gateway:
//
//	omega ask "what's on my calendar today"
//
// Scaffold a new data directory and config file:
//
//	omega init
//
// Issue a pairing token for a channel handshake:
//
//	omega pair whatsapp
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() so tests can exercise the command tree.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "omega",
		Short: "omega - a personal AI agent runtime",
		Long: `omega bridges messaging channels (Telegram, WhatsApp, CLI) to an LLM
provider, keeping a persistent SQLite memory of facts, tasks, and
conversation history, and running background loops for reminders,
idle-conversation summarization, and periodic check-ins.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildStartCmd(),
		buildStatusCmd(),
		buildAskCmd(),
		buildInitCmd(),
		buildPairCmd(),
		buildServiceCmd(),
	)

	return rootCmd
}
