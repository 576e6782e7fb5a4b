// Package provider defines the LLM provider port (spec §4.4): the
// contract every backend — the subprocess CLI variant and the HTTP
// variants for Anthropic, OpenAI-compatible endpoints, and Gemini —
// implements so the pipeline can swap between them without caring which
// one is live.
package provider

import "context"

// Message is one turn of conversation history handed to a provider.
type Message struct {
	Role    string
	Content string
}

// MCPServer declares a stdio-spawned MCP tool server a provider should
// discover tools from via its JSON-RPC handshake.
type MCPServer struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// Context carries everything a single completion call needs, per spec
// §4.4. Fields left zero take the provider's own default.
type Context struct {
	SystemPrompt   string
	History        []Message
	CurrentMessage string

	// Model overrides the provider's own default for this call only;
	// callers pick ModelFast or ModelComplex from the active Selection.
	Model string

	MaxTurns     int
	AllowedTools []string

	// SessionID threads a subprocess-variant conversation through
	// auto-resume; HTTP variants ignore it.
	SessionID string

	// AgentName, when set, tells the provider to run a declarative agent
	// file instead of SystemPrompt.
	AgentName string

	MCPServers []MCPServer
}

// Usage reports token consumption, when the provider's transport exposes it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Result is what complete() returns per spec §4.4.
type Result struct {
	Text      string
	SessionID string
	Model     string
	Usage     *Usage
}

// Provider is the port every backend implements.
type Provider interface {
	Complete(ctx context.Context, pctx Context) (*Result, error)
	Name() string
	RequiresAPIKey() bool
	IsAvailable() bool
}

// Selection names the two model tiers spec §4.4 routes between:
// ModelFast for routing/classification calls, ModelComplex for execution.
type Selection struct {
	Fast    string
	Complex string
}

// ModelFor picks Selection.Fast or Selection.Complex for a single call,
// falling back to whichever is non-empty if only one is configured.
func (s Selection) ModelFor(fast bool) string {
	if fast && s.Fast != "" {
		return s.Fast
	}
	if !fast && s.Complex != "" {
		return s.Complex
	}
	if s.Fast != "" {
		return s.Fast
	}
	return s.Complex
}
