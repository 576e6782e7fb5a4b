//go:build !linux && !darwin

package sandbox

import (
	"errors"
	"os/exec"

	"github.com/omegacore/omega/internal/config"
)

// wrap has no OS-level sandboxing backend outside Linux and macOS;
// ProtectedCommand logs the resulting error and runs the command
// unwrapped, per spec §4.3's graceful-degradation branch.
func wrap(cmd *exec.Cmd, allowedWrite []string, mode config.SandboxMode) (*exec.Cmd, error) {
	return nil, errors.New("no OS-level sandbox backend available on this platform")
}
