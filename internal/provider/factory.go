package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/provider/anthropic"
	"github.com/omegacore/omega/internal/provider/gemini"
	"github.com/omegacore/omega/internal/provider/openai"
	"github.com/omegacore/omega/internal/provider/subprocess"
	"github.com/omegacore/omega/internal/sandbox"
)

// New builds the configured provider plus its Selection, per spec
// §4.4's factory contract: (provider, model_fast, model_complex).
// workspaceDir roots both the subprocess variant's cwd and the HTTP
// variants' local tool executor.
func New(ctx context.Context, kind config.ProviderKind, pc config.ProviderConfig, guard *sandbox.Guard, sandboxCfg sandbox.Config, workspaceDir string, logger *slog.Logger) (Provider, Selection, error) {
	selection := Selection{Fast: pc.ModelFast, Complex: pc.ModelComplex}
	if selection.Fast == "" {
		selection.Fast = pc.Model
	}
	if selection.Complex == "" {
		selection.Complex = pc.Model
	}

	switch kind {
	case config.ProviderSubprocessCLI:
		command := pc.Model
		if command == "" {
			return nil, Selection{}, fmt.Errorf("subprocess-cli provider requires model to name the CLI binary")
		}
		p := subprocess.New(subprocess.Config{
			Command:           command,
			MaxTurns:          pc.MaxTurns,
			TimeoutSecs:       pc.TimeoutSecs,
			MaxResumeAttempts: pc.MaxResumeAttempts,
			WorkDir:           workspaceDir,
		}, guard, sandboxCfg, logger)
		return p, selection, nil

	case config.ProviderAnthropic:
		tools := NewToolExecutor(guard, sandboxCfg, workspaceDir, logger)
		p, err := anthropic.New(anthropic.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: pc.Model}, tools, logger)
		return p, selection, err

	case config.ProviderOpenAI:
		tools := NewToolExecutor(guard, sandboxCfg, workspaceDir, logger)
		p, err := openai.New(openai.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: pc.Model, Name: "openai"}, tools, logger)
		return p, selection, err

	case config.ProviderOllama:
		tools := NewToolExecutor(guard, sandboxCfg, workspaceDir, logger)
		p, err := openai.New(openai.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: pc.Model, Name: "ollama"}, tools, logger)
		return p, selection, err

	case config.ProviderOpenRouter:
		tools := NewToolExecutor(guard, sandboxCfg, workspaceDir, logger)
		p, err := openai.New(openai.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: pc.Model, Name: "openrouter"}, tools, logger)
		return p, selection, err

	case config.ProviderGemini:
		tools := NewToolExecutor(guard, sandboxCfg, workspaceDir, logger)
		p, err := gemini.New(ctx, gemini.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: pc.Model}, tools, logger)
		return p, selection, err

	default:
		return nil, Selection{}, fmt.Errorf("unknown provider kind %q", kind)
	}
}
