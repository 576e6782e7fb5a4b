// Package subprocess is the default provider variant of spec §4.4: it
// shells out to a CLI agent (the binary named by the provider's
// configured model, e.g. "claude" or "codex"), feeds it the composed
// context on stdin, and parses a single structured JSON result line
// back from stdout. Every invocation is wrapped in sandbox.ProtectedCommand.
package subprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	execsafety "github.com/omegacore/omega/internal/exec"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/internal/sandbox"
)

// Config holds the subprocess variant's settings, lifted from a
// config.ProviderConfig: Model names the CLI binary to invoke,
// MaxResumeAttempts bounds the error_max_turns auto-resume loop, and
// WorkDir is where the ephemeral MCP settings file is written and where
// the CLI's own cwd is rooted (spec §6.4's workspace/).
type Config struct {
	Command           string
	MaxTurns          int
	TimeoutSecs       int
	MaxResumeAttempts int
	WorkDir           string
}

// resumeBackoff is spec §4.4's fixed exponential backoff schedule for
// auto-resuming after error_max_turns, capped at 5 attempts.
var resumeBackoff = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second}

// cliResult is the structured JSON line the CLI writes to stdout.
type cliResult struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

// Provider implements provider.Provider by spawning Config.Command.
type Provider struct {
	cfg        Config
	guard      *sandbox.Guard
	sandboxCfg sandbox.Config
	logger     *slog.Logger
}

// New builds a Provider. guard and sandboxCfg are forwarded to
// sandbox.ProtectedCommand for every spawned child.
func New(cfg Config, guard *sandbox.Guard, sandboxCfg sandbox.Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 40
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 120
	}
	if cfg.MaxResumeAttempts <= 0 {
		cfg.MaxResumeAttempts = 5
	}
	return &Provider{cfg: cfg, guard: guard, sandboxCfg: sandboxCfg, logger: logger}
}

func (p *Provider) Name() string { return "subprocess-cli" }

// RequiresAPIKey is always false: the subprocess manages its own
// credentials (e.g. a logged-in CLI session) outside omega's config.
func (p *Provider) RequiresAPIKey() bool { return false }

func (p *Provider) IsAvailable() bool {
	_, err := exec.LookPath(p.cfg.Command)
	return err == nil
}

// Complete spawns the CLI once, then auto-resumes up to
// MaxResumeAttempts times when the CLI reports error_max_turns and gave
// back a session id, concatenating each attempt's partial result.
func (p *Provider) Complete(ctx context.Context, pctx provider.Context) (*provider.Result, error) {
	mcpPath, cleanup, err := p.writeMCPSettings(pctx)
	if err != nil {
		return nil, fmt.Errorf("write ephemeral mcp settings: %w", err)
	}
	defer cleanup()

	var combined strings.Builder
	sessionID := pctx.SessionID
	attempts := resumeAttempts(p.cfg.MaxResumeAttempts)

	for attempt := 0; attempt <= attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(resumeBackoff[min(attempt-1, len(resumeBackoff)-1)]):
			}
		}

		result, err := p.runOnce(ctx, pctx, sessionID, mcpPath)
		if err != nil {
			return nil, err
		}
		combined.WriteString(result.Result)
		sessionID = result.SessionID

		if result.Subtype != "error_max_turns" || sessionID == "" || attempt == attempts {
			return &provider.Result{Text: combined.String(), SessionID: sessionID, Model: result.Model}, nil
		}
		p.logger.Warn("subprocess provider hit max turns, auto-resuming", "attempt", attempt+1, "session_id", sessionID)
	}

	return &provider.Result{Text: combined.String(), SessionID: sessionID}, nil
}

func resumeAttempts(max int) int {
	if max > len(resumeBackoff) {
		return len(resumeBackoff)
	}
	return max
}

func (p *Provider) runOnce(ctx context.Context, pctx provider.Context, sessionID, mcpPath string) (*cliResult, error) {
	args := []string{"--max-turns", itoa(p.cfg.MaxTurns), "--mcp-config", mcpPath}
	if sessionID != "" {
		args = append(args, "--resume", sessionID)
	}
	if pctx.AgentName != "" {
		args = append(args, "--agent", pctx.AgentName)
	}
	for _, tool := range pctx.AllowedTools {
		args = append(args, "--allowed-tool", tool)
	}
	if _, err := execsafety.SanitizeArguments(args); err != nil {
		return nil, fmt.Errorf("unsafe subprocess argument: %w", err)
	}

	timeout := time.Duration(p.cfg.TimeoutSecs) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.cfg.Command, args...)
	cmd.Dir = p.cfg.WorkDir
	cmd.Stdin = strings.NewReader(renderPrompt(pctx))
	cmd = sandbox.ProtectedCommand(p.logger, p.sandboxCfg, cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("subprocess provider failed: %w: %s", err, stderr.String())
	}

	line := lastNonEmptyLine(stdout.String())
	var result cliResult
	if err := json.Unmarshal([]byte(line), &result); err != nil {
		return nil, fmt.Errorf("parse subprocess result: %w", err)
	}
	return &result, nil
}

// renderPrompt composes the system prompt, history and current message
// into the single stdin blob the CLI expects.
func renderPrompt(pctx provider.Context) string {
	var b strings.Builder
	if pctx.SystemPrompt != "" {
		b.WriteString(pctx.SystemPrompt)
		b.WriteString("\n\n")
	}
	for _, m := range pctx.History {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString(pctx.CurrentMessage)
	return b.String()
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

type mcpServerSettings struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// writeMCPSettings writes an ephemeral JSON settings file describing
// pctx.MCPServers into Config.WorkDir, returning a cleanup func that
// removes it; per spec §4.4 these are written fresh per call and
// cleaned up on exit rather than persisted.
func (p *Provider) writeMCPSettings(pctx provider.Context) (string, func(), error) {
	servers := make(map[string]mcpServerSettings, len(pctx.MCPServers))
	for _, s := range pctx.MCPServers {
		servers[s.Name] = mcpServerSettings{Command: s.Command, Args: s.Args, Env: s.Env}
	}
	data, err := json.Marshal(map[string]any{"mcpServers": servers})
	if err != nil {
		return "", func() {}, err
	}

	f, err := os.CreateTemp(p.cfg.WorkDir, "omega-mcp-*.json")
	if err != nil {
		return "", func() {}, err
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", func() {}, err
	}
	f.Close()

	return path, func() { os.Remove(path) }, nil
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }
