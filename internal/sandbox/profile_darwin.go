//go:build darwin

package sandbox

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/omegacore/omega/internal/config"
)

// wrap invokes cmd under sandbox-exec with a profile that denies all
// writes except the allowed paths, per spec §4.3's profile-based
// sandboxing branch.
func wrap(cmd *exec.Cmd, allowedWrite []string, mode config.SandboxMode) (*exec.Cmd, error) {
	if _, err := exec.LookPath("sandbox-exec"); err != nil {
		return nil, fmt.Errorf("sandbox-exec not available: %w", err)
	}

	profile := buildProfile(allowedWrite, mode)
	args := append([]string{"-p", profile}, originalArgs(cmd)...)
	wrapped := exec.Command("sandbox-exec", args...)
	inheritIO(cmd, wrapped)
	wrapped.Env = cmd.Env

	return wrapped, nil
}

// buildProfile emits a minimal Seatbelt profile: allow everything by
// default, deny all file writes, then re-allow writes under each path
// in allowedWrite. Mode rx additionally denies writes under the
// allowed paths themselves, leaving the command read+execute only.
func buildProfile(allowedWrite []string, mode config.SandboxMode) string {
	var b strings.Builder
	b.WriteString("(version 1)\n(allow default)\n(deny file-write*)\n")
	if mode != config.SandboxModeRX {
		for _, path := range allowedWrite {
			fmt.Fprintf(&b, "(allow file-write* (subpath %q))\n", path)
		}
	}
	return b.String()
}
