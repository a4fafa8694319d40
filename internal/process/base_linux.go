//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr sets Linux-specific process attributes on cmd.
// Setpgid gives the agent its own process group so terminateTree can
// signal the whole tree. Pdeathsig ensures the agent receives SIGTERM
// when the host process dies abruptly, preventing orphaned agents.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
