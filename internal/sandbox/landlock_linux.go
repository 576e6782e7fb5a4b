//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/landlock-lsm/go-landlock/landlock"

	"github.com/omegacore/omega/internal/config"
)

// reexecArg marks a child process as the landlock-restricted stage of
// a protected_command wrap: the real command is re-invoked through
// this binary so the Landlock ruleset is applied only to the child,
// never to the long-running gateway process that built it.
const reexecArg = "__omega_landlock_exec__"

const (
	envAllowedWrite = "OMEGA_SANDBOX_RW_PATHS"
	envReadOnly     = "OMEGA_SANDBOX_READONLY"
)

func init() {
	if len(os.Args) > 1 && os.Args[1] == reexecArg {
		runRestricted(os.Args[2:])
	}
}

// wrap re-invokes this binary with reexecArg so the actual restriction
// happens after fork, confined to the child alone.
func wrap(cmd *exec.Cmd, allowedWrite []string, mode config.SandboxMode) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve own executable for landlock reexec: %w", err)
	}

	args := append([]string{reexecArg}, originalArgs(cmd)...)
	wrapped := exec.Command(self, args...)
	inheritIO(cmd, wrapped)

	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	env = append(env, envAllowedWrite+"="+joinPathList(allowedWrite))
	if mode == config.SandboxModeRX {
		env = append(env, envReadOnly+"=1")
	}
	wrapped.Env = env

	return wrapped, nil
}

// runRestricted applies the Landlock ruleset encoded in the
// environment and then replaces this process with the real target. It
// never returns to the caller.
func runRestricted(target []string) {
	if len(target) == 0 {
		fmt.Fprintln(os.Stderr, "omega: landlock reexec called without a target command")
		os.Exit(127)
	}

	allowed := strings.Split(os.Getenv(envAllowedWrite), string(os.PathListSeparator))
	readOnly := os.Getenv(envReadOnly) == "1"

	rules := make([]landlock.Rule, 0, len(allowed)+1)
	rules = append(rules, landlock.RODirs("/usr", "/bin", "/lib", "/lib64", "/etc").IgnoreIfMissing())
	for _, path := range allowed {
		if path == "" {
			continue
		}
		if readOnly {
			rules = append(rules, landlock.RODirs(path).IgnoreIfMissing())
		} else {
			rules = append(rules, landlock.RWDirs(path).IgnoreIfMissing())
		}
	}

	// BestEffort silently degrades to whatever ABI version the running
	// kernel actually supports, down to a no-op on kernels without
	// Landlock at all — the "graceful degradation" spec §4.3 asks for,
	// here pushed into the restricted child rather than decided by the
	// unrestricted parent.
	if err := landlock.V5.BestEffort().RestrictPaths(rules...); err != nil {
		fmt.Fprintln(os.Stderr, "omega: landlock restriction failed, continuing unrestricted:", err)
	}

	path, err := exec.LookPath(target[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "omega: resolve sandboxed command:", err)
		os.Exit(127)
	}
	if err := syscall.Exec(path, target, os.Environ()); err != nil {
		fmt.Fprintln(os.Stderr, "omega: exec sandboxed command:", err)
		os.Exit(127)
	}
}
