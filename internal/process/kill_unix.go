//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// terminateTree sends SIGTERM to the process group rooted at pid. The
// group exists because configureSysProcAttr starts agents with Setpgid,
// so the negative-pid form reaches descendants too. If the group signal
// fails (e.g., the group is already gone), the plain pid is signaled as
// a fallback before giving up.
func terminateTree(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err == nil {
		return nil
	}
	return syscall.Kill(pid, syscall.SIGTERM)
}

// killTree sends SIGKILL to the process group rooted at pid, falling back
// to the plain pid when the group signal fails.
func killTree(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err == nil {
		return nil
	}
	return syscall.Kill(pid, syscall.SIGKILL)
}

// Alive reports whether a process with the given pid currently exists.
// Signal 0 performs the existence check without delivering anything.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// expectTerminatedExit interprets an error from cmd.Wait after the
// termination sequence. Exit statuses caused by SIGTERM or SIGKILL are
// the expected outcome of a stop and are not errors.
func expectTerminatedExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
