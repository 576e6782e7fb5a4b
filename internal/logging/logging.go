// Package logging provides a structured logger: slog-backed, JSON or text, with context-carried channel/sender/project
// fields and redaction of anything that looks like a secret.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog with context field extraction and secret redaction.
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// Config configures the logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Output io.Writer

	// FilePath, when set, writes logs through a lumberjack rotator
	// instead of (or in addition to, if Output is also set) Output.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	RedactPatterns []string
}

type contextKey string

const (
	channelKey contextKey = "channel"
	senderKey  contextKey = "sender_id"
	projectKey contextKey = "project"
)

// defaultRedactPatterns catches the shapes of secret this runtime handles
// directly: provider API keys, bearer tokens, channel bot tokens.
var defaultRedactPatterns = []string{
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`sk-[a-zA-Z0-9]{20,}`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-.]{16,})`,
	`(?i)(api[_-]?key|secret|password)[\s:=]+["']?([^\s"']{8,})["']?`,
	`\d{8,10}:[a-zA-Z0-9_-]{35}`, // telegram bot token shape
}

// New builds a Logger from cfg. A zero Config logs info-level JSON to
// stdout.
func New(cfg Config) *Logger {
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}
	if strings.TrimSpace(cfg.FilePath) != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
			maxSize := cfg.MaxSizeMB
			if maxSize == 0 {
				maxSize = 50
			}
			maxBackups := cfg.MaxBackups
			if maxBackups == 0 {
				maxBackups = 5
			}
			maxAge := cfg.MaxAgeDays
			if maxAge == 0 {
				maxAge = 30
			}
			rotator := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    maxSize,
				MaxBackups: maxBackups,
				MaxAge:     maxAge,
				Compress:   true,
			}
			if cfg.Output != nil {
				output = io.MultiWriter(cfg.Output, rotator)
			} else {
				output = rotator
			}
		}
	}

	level := levelFromString(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	patterns := append(append([]string{}, defaultRedactPatterns...), cfg.RedactPatterns...)
	redacts := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			redacts = append(redacts, re)
		}
	}

	return &Logger{logger: slog.New(handler), redacts: redacts}
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithChannel, WithSender, and WithProject attach identity on the context
// so every log line written through it carries routing provenance
// without every call site threading the fields through explicitly.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey, channel)
}

func WithSender(ctx context.Context, senderID string) context.Context {
	return context.WithValue(ctx, senderKey, senderID)
}

func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, projectKey, project)
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelDebug, msg, args...) }
func (l *Logger) Info(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelWarn, msg, args...) }
func (l *Logger) Error(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelError, msg, args...) }

// Slog returns the underlying *slog.Logger, for handing to components
// that take a plain slog.Logger rather than this package's redacting
// wrapper (every background loop and provider does).
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// With returns a logger with fixed fields attached to every record, for
// per-component loggers (e.g. scheduler, heartbeat).
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), redacts: l.redacts}
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	msg = l.redactString(msg)

	attrs := make([]any, 0, len(args)+6)
	if channel, ok := ctx.Value(channelKey).(string); ok && channel != "" {
		attrs = append(attrs, "channel", channel)
	}
	if sender, ok := ctx.Value(senderKey).(string); ok && sender != "" {
		attrs = append(attrs, "sender_id", sender)
	}
	if project, ok := ctx.Value(projectKey).(string); ok && project != "" {
		attrs = append(attrs, "project", project)
	}
	for _, a := range args {
		attrs = append(attrs, l.redactValue(a))
	}
	l.logger.Log(ctx, level, msg, attrs...)
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redactString(val)
	case error:
		return l.redactString(val.Error())
	case []byte:
		return l.redactString(string(val))
	default:
		if b, err := json.Marshal(v); err == nil {
			red := l.redactString(string(b))
			if red != string(b) {
				return red
			}
		}
		return v
	}
}

func (l *Logger) redactString(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}
