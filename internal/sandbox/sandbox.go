// Package sandbox implements the two-layer file-access protection spec
// §4.3 requires: a pure code-level blocklist consulted by in-process
// tool executors, and protected_command, which decorates a
// subprocess-launching *exec.Cmd with whatever OS-level write
// restriction the platform offers.
package sandbox

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/errs"
)

// Config names the paths protected_command and the Guard must reason
// about: the always-protected data file locations, and the paths a
// wrapped subprocess is still allowed to write to.
type Config struct {
	DataDir    string
	ConfigPath string
	InstallDir string
	CacheDir   string
	Mode       config.SandboxMode
}

// Guard is the code-level blocklist: pure functions over a fixed set of
// protected paths, consulted by in-process tool executors (the read,
// write, and edit tools in the HTTP provider's agentic loop; the bash
// tool is covered only by ProtectedCommand) before touching the
// filesystem directly.
type Guard struct {
	dbPath     string
	configPath string
	installDir string
}

// NewGuard derives the protected path set from cfg: the memory
// database, the config file, and the binary's own installation
// directory, per spec §4.3.
func NewGuard(cfg Config) *Guard {
	return &Guard{
		dbPath:     filepath.Clean(filepath.Join(cfg.DataDir, "data", "memory.db")),
		configPath: cleanIfSet(cfg.ConfigPath),
		installDir: cleanIfSet(cfg.InstallDir),
	}
}

func cleanIfSet(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// IsWriteBlocked reports whether path names the database file, the
// config file, or anything inside the install directory.
func (g *Guard) IsWriteBlocked(path string) bool {
	return g.protects(path)
}

// IsReadBlocked reports whether path is protected from read access.
// Today the same set is protected against both reads and writes: the
// runtime has no legitimate reason for an agentic tool call to read
// its own credentials or binary.
func (g *Guard) IsReadBlocked(path string) bool {
	return g.protects(path)
}

func (g *Guard) protects(path string) bool {
	abs := path
	if resolved, err := filepath.Abs(path); err == nil {
		abs = filepath.Clean(resolved)
	}
	if g.dbPath != "" && abs == g.dbPath {
		return true
	}
	if g.configPath != "" && abs == g.configPath {
		return true
	}
	if g.installDir != "" && withinDir(abs, g.installDir) {
		return true
	}
	return false
}

func withinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "")
}

// CheckWrite returns an *errs.Error with CategorySandboxDeny when path
// is write-blocked, or nil otherwise — the shape a tool executor wants
// to return straight up its call stack.
func (g *Guard) CheckWrite(operation, path string) error {
	if g.IsWriteBlocked(path) {
		return errs.SandboxDeny(operation, path)
	}
	return nil
}

// CheckRead is CheckWrite's read-side counterpart.
func (g *Guard) CheckRead(operation, path string) error {
	if g.IsReadBlocked(path) {
		return errs.SandboxDeny(operation, path)
	}
	return nil
}

// wrap is implemented per platform in landlock_linux.go,
// profile_darwin.go, and fallback_other.go. It returns a new *exec.Cmd
// that runs cmd under whatever OS-level write restriction the platform
// offers, confined to allowedWrite plus read+execute access everywhere
// else. An error return means no backend is available on this platform
// or kernel.

// ProtectedCommand decorates cmd with platform-specific sandboxing per
// spec §4.3. It never fails: on any wrapping error it logs a warning
// and returns cmd unwrapped. Mode rwx opts out of wrapping entirely,
// for local development against a trusted provider.
func ProtectedCommand(logger *slog.Logger, cfg Config, cmd *exec.Cmd) *exec.Cmd {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == config.SandboxModeRWX {
		return cmd
	}

	allowed := allowedWritePaths(cfg)
	wrapped, err := wrap(cmd, allowed, cfg.Mode)
	if err != nil {
		logger.Warn("os-level sandbox unavailable, running command unwrapped",
			"error", err, "command", cmd.Path)
		return cmd
	}
	return wrapped
}

func allowedWritePaths(cfg Config) []string {
	paths := []string{cfg.DataDir, os.TempDir()}
	if cfg.CacheDir != "" {
		paths = append(paths, cfg.CacheDir)
	}
	return paths
}

func inheritIO(src, dst *exec.Cmd) {
	dst.Dir = src.Dir
	dst.Stdin = src.Stdin
	dst.Stdout = src.Stdout
	dst.Stderr = src.Stderr
}

func originalArgs(cmd *exec.Cmd) []string {
	args := make([]string, 0, len(cmd.Args))
	args = append(args, cmd.Path)
	if len(cmd.Args) > 1 {
		args = append(args, cmd.Args[1:]...)
	}
	return args
}

func joinPathList(paths []string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}
