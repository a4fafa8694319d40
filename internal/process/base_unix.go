//go:build !linux && !windows

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr sets Unix process attributes on cmd. Setpgid gives
// the agent its own process group so terminateTree can signal the whole
// tree. Pdeathsig (parent-death signal) is a Linux-only kernel feature
// and is unavailable here.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
