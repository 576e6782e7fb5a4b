// Package gemini is the HTTP provider variant for Google's Gemini API,
// built on google.golang.org/genai.
package gemini

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	genai "google.golang.org/genai"

	"github.com/omegacore/omega/internal/errs"
	"github.com/omegacore/omega/internal/provider"
)

const defaultModel = "gemini-2.0-flash"

// Config holds the settings Provider needs.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Provider implements provider.Provider against Gemini's GenerateContent API.
type Provider struct {
	client *genai.Client
	model  string
	apiKey string
	tools  *provider.ToolExecutor
	logger *slog.Logger
}

// New builds a Provider.
func New(ctx context.Context, cfg Config, tools *provider.ToolExecutor, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	httpOpts := genai.HTTPOptions{}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		httpOpts.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, errs.New(errs.CategoryConfiguration, "failed to init gemini client", err)
	}

	return &Provider{client: client, model: model, apiKey: cfg.APIKey, tools: tools, logger: logger}, nil
}

func (p *Provider) Name() string         { return "gemini" }
func (p *Provider) RequiresAPIKey() bool { return true }
func (p *Provider) IsAvailable() bool    { return p.apiKey != "" }

var toolDecls = []*genai.FunctionDeclaration{
	{Name: "bash", Description: "run a shell command in the workspace", ParametersJsonSchema: map[string]any{
		"type": "object", "properties": map[string]any{"command": map[string]any{"type": "string"}}, "required": []string{"command"},
	}},
	{Name: "read", Description: "read a file in the workspace", ParametersJsonSchema: map[string]any{
		"type": "object", "properties": map[string]any{"path": map[string]any{"type": "string"}}, "required": []string{"path"},
	}},
	{Name: "write", Description: "write a file in the workspace", ParametersJsonSchema: map[string]any{
		"type": "object", "properties": map[string]any{
			"path":    map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
		}, "required": []string{"path", "content"},
	}},
	{Name: "edit", Description: "find-and-replace within a file in the workspace", ParametersJsonSchema: map[string]any{
		"type": "object", "properties": map[string]any{
			"path":    map[string]any{"type": "string"},
			"find":    map[string]any{"type": "string"},
			"replace": map[string]any{"type": "string"},
		}, "required": []string{"path", "find", "replace"},
	}},
}

// Complete runs the agentic tool loop against Gemini's GenerateContent API.
func (p *Provider) Complete(ctx context.Context, pctx provider.Context) (*provider.Result, error) {
	model := p.model
	if pctx.Model != "" {
		model = pctx.Model
	}
	maxTurns := pctx.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}

	contents := convertHistory(pctx.History)
	contents = append(contents, genai.NewContentFromText(pctx.CurrentMessage, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{FunctionDeclarations: toolDecls}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		},
	}
	if pctx.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(pctx.SystemPrompt, genai.RoleUser)
	}

	var usage provider.Usage
	for turn := 0; turn < maxTurns; turn++ {
		resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			return nil, errs.ClassifyProviderError(0, err)
		}
		if resp.UsageMetadata != nil {
			usage.InputTokens += int(resp.UsageMetadata.PromptTokenCount)
			usage.OutputTokens += int(resp.UsageMetadata.CandidatesTokenCount)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, errs.New(errs.CategoryProviderPermanent, "provider returned no candidates", nil)
		}

		var text strings.Builder
		var calls []*genai.FunctionCall
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.FunctionCall != nil {
				calls = append(calls, part.FunctionCall)
			} else if part.Text != "" {
				text.WriteString(part.Text)
			}
		}

		if len(calls) == 0 {
			return &provider.Result{Text: text.String(), Model: model, Usage: &usage}, nil
		}

		contents = append(contents, resp.Candidates[0].Content)
		responseParts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			result := p.runTool(ctx, call)
			responseParts = append(responseParts, genai.NewPartFromFunctionResponse(call.Name, map[string]any{
				"content":  result.Content,
				"is_error": result.IsError,
			}))
		}
		contents = append(contents, genai.NewContentFromParts(responseParts, genai.RoleUser))
	}

	return nil, errs.New(errs.CategoryProviderPermanent, "exhausted max_turns without a final response", nil)
}

func (p *Provider) runTool(ctx context.Context, call *genai.FunctionCall) provider.ToolCallResult {
	if p.tools == nil {
		return provider.ToolCallResult{Content: "no tool executor configured", IsError: true}
	}
	args, err := json.Marshal(call.Args)
	if err != nil {
		return provider.ToolCallResult{Content: err.Error(), IsError: true}
	}
	result := p.tools.Execute(ctx, provider.ToolCall{ID: call.ID, Name: call.Name, Input: args})
	return result
}

func convertHistory(history []provider.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}
