// Package anthropic is the HTTP provider variant for Anthropic's Claude
// API: the agentic tool loop of spec §4.4 built on the official
// anthropic-sdk-go client instead of a subprocess CLI.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/omegacore/omega/internal/errs"
	"github.com/omegacore/omega/internal/provider"
)

const defaultModel = "claude-sonnet-4-20250514"

// toolSpecs are the four local tools the agentic loop offers the model,
// matching the executor provider.ToolExecutor implements.
var toolSpecs = []anthropic.ToolUnionParam{
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

func toolSpec(name, description string, properties map[string]any, required ...string) anthropic.ToolUnionParam {
	param := anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}, name)
	param.OfTool.Description = anthropic.String(description)
	return param
}

// Config holds the settings Provider needs beyond the shared provider.Context.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Provider implements provider.Provider against the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
	model  string
	apiKey string
	tools  *provider.ToolExecutor
	logger *slog.Logger
}

// New builds a Provider. tools executes the bash/read/write/edit calls
// the model's tool_use blocks request; it is nil-safe only in tests that
// never trigger a tool call.
func New(cfg Config, tools *provider.ToolExecutor, logger *slog.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api_key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Provider{
		client: anthropic.NewClient(opts...),
		model:  model,
		apiKey: cfg.APIKey,
		tools:  tools,
		logger: logger,
	}, nil
}

func (p *Provider) Name() string         { return "anthropic" }
func (p *Provider) RequiresAPIKey() bool { return true }
func (p *Provider) IsAvailable() bool    { return p.apiKey != "" }

// Complete runs the agentic tool loop: call the model, execute any
// tool_use blocks locally, feed the results back as a user turn, repeat
// until the model replies with text only or MaxTurns is reached.
func (p *Provider) Complete(ctx context.Context, pctx provider.Context) (*provider.Result, error) {
	model := p.model
	if pctx.Model != "" {
		model = pctx.Model
	}
	maxTurns := pctx.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}

	messages := convertHistory(pctx.History)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(pctx.CurrentMessage)))

	var usage provider.Usage
	for turn := 0; turn < maxTurns; turn++ {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: 4096,
			Messages:  messages,
			Tools:     toolSpecs,
		}
		if pctx.SystemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: pctx.SystemPrompt}}
		}

		msg, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return nil, errs.ClassifyProviderError(statusCodeOf(err), err)
		}
		usage.InputTokens += int(msg.Usage.InputTokens)
		usage.OutputTokens += int(msg.Usage.OutputTokens)

		var text strings.Builder
		var toolUses []anthropic.ContentBlockUnion
		for _, block := range msg.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				text.WriteString(variant.Text)
			case anthropic.ToolUseBlock:
				toolUses = append(toolUses, block)
			}
		}

		if len(toolUses) == 0 {
			return &provider.Result{Text: text.String(), Model: model, Usage: &usage}, nil
		}

		messages = append(messages, msg.ToParam())
		resultBlocks := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, block := range toolUses {
			use := block.AsToolUse()
			result := p.runTool(ctx, use)
			resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(use.ID, result.Content, result.IsError))
		}
		messages = append(messages, anthropic.NewUserMessage(resultBlocks...))
	}

	return nil, errs.New(errs.CategoryProviderPermanent, "exhausted max_turns without a final response", nil)
}

func (p *Provider) runTool(ctx context.Context, use anthropic.ToolUseBlock) provider.ToolCallResult {
	if p.tools == nil {
		return provider.ToolCallResult{ToolCallID: use.ID, Content: "no tool executor configured", IsError: true}
	}
	input, err := json.Marshal(use.Input)
	if err != nil {
		return provider.ToolCallResult{ToolCallID: use.ID, Content: err.Error(), IsError: true}
	}
	return p.tools.Execute(ctx, provider.ToolCall{ID: use.ID, Name: use.Name, Input: input})
}

func convertHistory(history []provider.Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	return messages
}

// statusCodeOf pulls an HTTP status off the SDK's error type when
// present, so errs.ClassifyProviderError can route on it like it does
// for the other HTTP variants.
func statusCodeOf(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
