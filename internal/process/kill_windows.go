//go:build windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// taskkillBinary is the Windows process-tree termination utility.
// Signaling only the parent pid does not reach descendants on Windows,
// so the tree flag is required.
const taskkillBinary = "taskkill"

// runTaskkill invokes taskkill with the tree and force flags against a
// validated, numeric-only pid argument. The pid is rendered through
// strconv.Itoa, so nothing but digits can reach the command line.
func runTaskkill(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("refusing to taskkill invalid pid %d", pid)
	}
	cmd := exec.Command(taskkillBinary, "/PID", strconv.Itoa(pid), "/T", "/F")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("taskkill pid %d: %w", pid, err)
	}
	return nil
}

// terminateTree terminates the process tree rooted at pid. Windows has no
// graceful signal usable from another console process, so the forced
// tree-kill is both the graceful and the escalation path.
func terminateTree(pid int) error {
	return runTaskkill(pid)
}

// killTree force-kills the process tree rooted at pid.
func killTree(pid int) error {
	return runTaskkill(pid)
}

// Alive reports whether a process with the given pid currently exists.
// FindProcess succeeds for any pid on Windows, so an actual open via
// Signal is not available; the reaper treats every recorded pid as
// potentially alive and relies on taskkill being a no-op for dead pids.
func Alive(pid int) bool {
	return pid > 0
}

// expectTerminatedExit interprets an error from cmd.Wait after the
// termination sequence. A taskkill'd process reports a nonzero exit
// status, which is the expected outcome of a stop.
func expectTerminatedExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
