// Package openai is the HTTP provider variant for OpenAI's chat
// completions API and anything that speaks the same wire format behind
// a different base_url — Ollama and OpenRouter, per spec §6.3's
// base_url override.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/omegacore/omega/internal/errs"
	"github.com/omegacore/omega/internal/provider"
)

const defaultModel = "gpt-4o"

var toolSpecs = []openai.Tool{
	toolSpec("bash", "run a shell command in the workspace", map[string]any{
		"command": map[string]any{"type": "string"},
	}, "command"),
	toolSpec("read", "read a file in the workspace", map[string]any{
		"path": map[string]any{"type": "string"},
	}, "path"),
	toolSpec("write", "write a file in the workspace", map[string]any{
		"path":    map[string]any{"type": "string"},
		"content": map[string]any{"type": "string"},
	}, "path", "content"),
	toolSpec("edit", "find-and-replace within a file in the workspace", map[string]any{
		"path":    map[string]any{"type": "string"},
		"find":    map[string]any{"type": "string"},
		"replace": map[string]any{"type": "string"},
	}, "path", "find", "replace"),
}

func toolSpec(name, description string, properties map[string]any, required ...string) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// Config holds the settings Provider needs. BaseURL, when set, retargets
// the client at an OpenAI-compatible endpoint (Ollama, OpenRouter, a
// self-hosted gateway) while keeping the same wire format.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Name    string
}

// Provider implements provider.Provider against any OpenAI-compatible
// chat completions endpoint.
type Provider struct {
	client *openai.Client
	name   string
	model  string
	apiKey string
	tools  *provider.ToolExecutor
	logger *slog.Logger
}

// New builds a Provider. Name defaults to "openai" but callers
// targeting Ollama or OpenRouter should pass that name through so
// logging and config.ProviderKind routing line up.
func New(cfg Config, tools *provider.ToolExecutor, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientCfg),
		name:   name,
		model:  model,
		apiKey: cfg.APIKey,
		tools:  tools,
		logger: logger,
	}, nil
}

func (p *Provider) Name() string { return p.name }

// RequiresAPIKey is true only when Name is openai or openrouter; any
// other Name (e.g. ollama) is treated as a keyless local endpoint.
func (p *Provider) RequiresAPIKey() bool { return p.name == "openai" || p.name == "openrouter" }

func (p *Provider) IsAvailable() bool {
	if p.RequiresAPIKey() {
		return p.apiKey != ""
	}
	return true
}

// Complete runs the agentic tool loop against the chat completions API.
func (p *Provider) Complete(ctx context.Context, pctx provider.Context) (*provider.Result, error) {
	model := p.model
	if pctx.Model != "" {
		model = pctx.Model
	}
	maxTurns := pctx.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}

	messages := convertHistory(pctx.SystemPrompt, pctx.History)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: pctx.CurrentMessage})

	var usage provider.Usage
	for turn := 0; turn < maxTurns; turn++ {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    model,
			Messages: messages,
			Tools:    toolSpecs,
		})
		if err != nil {
			return nil, errs.ClassifyProviderError(statusCodeOf(err), err)
		}
		usage.InputTokens += resp.Usage.PromptTokens
		usage.OutputTokens += resp.Usage.CompletionTokens

		if len(resp.Choices) == 0 {
			return nil, errs.New(errs.CategoryProviderPermanent, "provider returned no choices", nil)
		}
		choice := resp.Choices[0].Message

		if len(choice.ToolCalls) == 0 {
			return &provider.Result{Text: choice.Content, Model: model, Usage: &usage}, nil
		}

		messages = append(messages, choice)
		for _, call := range choice.ToolCalls {
			result := p.runTool(ctx, call)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result.Content,
				ToolCallID: call.ID,
			})
		}
	}

	return nil, errs.New(errs.CategoryProviderPermanent, "exhausted max_turns without a final response", nil)
}

func (p *Provider) runTool(ctx context.Context, call openai.ToolCall) provider.ToolCallResult {
	if p.tools == nil {
		return provider.ToolCallResult{ToolCallID: call.ID, Content: "no tool executor configured", IsError: true}
	}
	return p.tools.Execute(ctx, provider.ToolCall{
		ID:    call.ID,
		Name:  call.Function.Name,
		Input: json.RawMessage(call.Function.Arguments),
	})
}

func convertHistory(systemPrompt string, history []provider.Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return messages
}

func statusCodeOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}
