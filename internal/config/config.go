// Package config loads and validates omega's config.toml: the single file
// that carries identity, provider credentials, channel tokens, memory and
// scheduler tuning, and sandbox mode.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the root of config.toml.
type Config struct {
	Omega     OmegaConfig              `toml:"omega"`
	Auth      AuthConfig               `toml:"auth"`
	Provider  ProviderSection          `toml:"provider"`
	Channel   map[string]ChannelConfig `toml:"channel"`
	Memory    MemoryConfig             `toml:"memory"`
	Heartbeat HeartbeatConfig          `toml:"heartbeat"`
	Scheduler SchedulerConfig          `toml:"scheduler"`
	Sandbox   SandboxConfig            `toml:"sandbox"`
}

// OmegaConfig is the [omega] table.
type OmegaConfig struct {
	Name    string `toml:"name"`
	DataDir string `toml:"data_dir"`
}

// AuthConfig is the [auth] table: whether the gateway demands a pairing
// token before accepting messages from a new sender.
type AuthConfig struct {
	Enabled   bool   `toml:"enabled"`
	JWTSecret string `toml:"jwt_secret"`
}

// ProviderSection is the [provider] table plus its [provider.<name>]
// sub-tables.
type ProviderSection struct {
	Default   string                    `toml:"default"`
	Providers map[string]ProviderConfig `toml:"-"`
}

// ProviderKind enumerates the providers the spec names.
type ProviderKind string

const (
	ProviderSubprocessCLI ProviderKind = "subprocess-cli"
	ProviderOpenAI        ProviderKind = "openai"
	ProviderAnthropic     ProviderKind = "anthropic"
	ProviderOllama        ProviderKind = "ollama"
	ProviderOpenRouter    ProviderKind = "openrouter"
	ProviderGemini        ProviderKind = "gemini"
)

// ProviderConfig is one [provider.<name>] sub-table.
type ProviderConfig struct {
	Enabled           bool     `toml:"enabled"`
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	Model             string   `toml:"model"`
	ModelFast         string   `toml:"model_fast"`
	ModelComplex      string   `toml:"model_complex"`
	MaxTurns          int      `toml:"max_turns"`
	TimeoutSecs       int      `toml:"timeout_secs"`
	MaxResumeAttempts int      `toml:"max_resume_attempts"`
	AllowedTools      []string `toml:"allowed_tools"`
}

// ChannelConfig is one [channel.<name>] sub-table.
type ChannelConfig struct {
	Enabled      bool              `toml:"enabled"`
	Token        string            `toml:"token"`
	Credentials  map[string]string `toml:"credentials"`
	AllowedUsers []string          `toml:"allowed_users"`
}

// MemoryConfig is the [memory] table.
type MemoryConfig struct {
	DBPath             string `toml:"db_path"`
	MaxContextMessages int    `toml:"max_context_messages"`
	IdleTimeoutMinutes int    `toml:"idle_timeout_minutes"`
}

// HeartbeatConfig is the [heartbeat] table. IntervalMinutes is rewritten
// in place by the HEARTBEAT_INTERVAL marker handler.
type HeartbeatConfig struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	ActiveStart     string `toml:"active_start"`
	ActiveEnd       string `toml:"active_end"`
}

// SchedulerConfig is the [scheduler] table.
type SchedulerConfig struct {
	PollIntervalSecs int `toml:"poll_interval_secs"`
}

// SandboxMode selects how aggressively the subprocess provider is confined.
type SandboxMode string

const (
	SandboxModeSandbox SandboxMode = "sandbox"
	SandboxModeRX      SandboxMode = "rx"
	SandboxModeRWX     SandboxMode = "rwx"
)

// SandboxConfig is the [sandbox] table.
type SandboxConfig struct {
	Mode SandboxMode `toml:"mode"`
}

// Load reads path, resolving $include directives, expanding environment
// variables and leading "~" in path-valued keys, applying defaults and
// validating the result.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}

	expandTildes(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save rewrites path with cfg's current values, including the
// [provider.<name>] sub-tables that toml.Marshal skips (toml:"-"). Used
// by marker handlers that mutate live configuration — today only
// HEARTBEAT_INTERVAL does.
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if len(cfg.Provider.Providers) > 0 {
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		section := map[string]any{"default": cfg.Provider.Default}
		for name, pc := range cfg.Provider.Providers {
			section[name] = pc
		}
		raw["provider"] = section
		if data, err = toml.Marshal(raw); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o600)
}

func expandTilde(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "~") {
		return p
	}
	u, err := user.Current()
	if err != nil || u.HomeDir == "" {
		return p
	}
	rest := strings.TrimPrefix(p, "~")
	rest = strings.TrimPrefix(rest, string(filepath.Separator))
	return filepath.Join(u.HomeDir, rest)
}

func expandTildes(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Omega.DataDir = expandTilde(cfg.Omega.DataDir)
	cfg.Memory.DBPath = expandTilde(cfg.Memory.DBPath)
}

func applyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Omega.Name == "" {
		cfg.Omega.Name = "omega"
	}
	if cfg.Omega.DataDir == "" {
		cfg.Omega.DataDir = expandTilde("~/.omega")
	}
	if cfg.Provider.Default == "" {
		cfg.Provider.Default = string(ProviderSubprocessCLI)
	}
	for name, pc := range cfg.Provider.Providers {
		if pc.MaxTurns == 0 {
			pc.MaxTurns = 40
		}
		if pc.TimeoutSecs == 0 {
			pc.TimeoutSecs = 120
		}
		if pc.MaxResumeAttempts == 0 {
			pc.MaxResumeAttempts = 5
		}
		cfg.Provider.Providers[name] = pc
	}
	if cfg.Memory.DBPath == "" {
		cfg.Memory.DBPath = filepath.Join(cfg.Omega.DataDir, "data", "memory.db")
	}
	if cfg.Memory.MaxContextMessages == 0 {
		cfg.Memory.MaxContextMessages = 30
	}
	if cfg.Memory.IdleTimeoutMinutes == 0 {
		cfg.Memory.IdleTimeoutMinutes = 120
	}
	if cfg.Heartbeat.IntervalMinutes == 0 {
		cfg.Heartbeat.IntervalMinutes = 60
	}
	if cfg.Scheduler.PollIntervalSecs == 0 {
		cfg.Scheduler.PollIntervalSecs = 60
	}
	if cfg.Sandbox.Mode == "" {
		cfg.Sandbox.Mode = SandboxModeSandbox
	}
}

// ValidationError collects every violation found by validate so callers
// (notably `omega init` and `omega start`) can report them all at once.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	var issues []string

	if cfg.Heartbeat.IntervalMinutes < 1 || cfg.Heartbeat.IntervalMinutes > 1440 {
		issues = append(issues, "heartbeat.interval_minutes must be between 1 and 1440")
	}
	if cfg.Heartbeat.ActiveStart != "" {
		if _, err := ParseClock(cfg.Heartbeat.ActiveStart); err != nil {
			issues = append(issues, "heartbeat.active_start must be HH:MM")
		}
	}
	if cfg.Heartbeat.ActiveEnd != "" {
		if _, err := ParseClock(cfg.Heartbeat.ActiveEnd); err != nil {
			issues = append(issues, "heartbeat.active_end must be HH:MM")
		}
	}

	switch cfg.Sandbox.Mode {
	case SandboxModeSandbox, SandboxModeRX, SandboxModeRWX:
	default:
		issues = append(issues, "sandbox.mode must be \"sandbox\", \"rx\", or \"rwx\"")
	}

	switch ProviderKind(cfg.Provider.Default) {
	case ProviderSubprocessCLI, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderOpenRouter, ProviderGemini:
	default:
		issues = append(issues, fmt.Sprintf("provider.default %q is not a recognized provider", cfg.Provider.Default))
	}
	if _, ok := cfg.Provider.Providers[cfg.Provider.Default]; !ok {
		issues = append(issues, fmt.Sprintf("provider.%s table is required because it is the default provider", cfg.Provider.Default))
	}

	if cfg.Memory.MaxContextMessages < 0 {
		issues = append(issues, "memory.max_context_messages must be >= 0")
	}
	if cfg.Memory.IdleTimeoutMinutes < 0 {
		issues = append(issues, "memory.idle_timeout_minutes must be >= 0")
	}
	if cfg.Scheduler.PollIntervalSecs < 1 {
		issues = append(issues, "scheduler.poll_interval_secs must be >= 1")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
