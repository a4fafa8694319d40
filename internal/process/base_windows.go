//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr sets Windows process attributes on cmd. A new
// process group keeps console control events scoped to the agent tree;
// actual termination goes through taskkill (see kill_windows.go).
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
