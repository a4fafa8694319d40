package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// LogFiles manages stdout/stderr file handles for a spawned agent.
type LogFiles struct {
	stdoutFile *os.File
	stderrFile *os.File
	logDir     string
	stdoutName string // e.g., "agent-stdout.log"
	stderrName string // e.g., "agent-stderr.log"
}

// create creates stdout and stderr log files.
// Both files are assigned to the struct only after both creates succeed.
func (l *LogFiles) create() error {
	stdoutFile, err := os.Create(l.StdoutPath())
	if err != nil {
		return fmt.Errorf("create stdout log: %w", err)
	}
	stderrFile, err := os.Create(l.StderrPath())
	if err != nil {
		_ = stdoutFile.Close()
		return fmt.Errorf("create stderr log: %w", err)
	}
	l.stdoutFile = stdoutFile
	l.stderrFile = stderrFile
	return nil
}

// Close closes both log file handles and nils them to prevent double-close.
func (l *LogFiles) Close() {
	if l.stdoutFile != nil {
		_ = l.stdoutFile.Close()
		l.stdoutFile = nil
	}
	if l.stderrFile != nil {
		_ = l.stderrFile.Close()
		l.stderrFile = nil
	}
}

// StdoutPath returns the absolute path to the stdout log file.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.logDir, l.stdoutName)
}

// StderrPath returns the absolute path to the stderr log file.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.logDir, l.stderrName)
}

// NewLogFiles creates and initializes log files for a process. The
// processName generates the file names (e.g., "agent" -> "agent-stdout.log").
func NewLogFiles(logDir, processName string) (LogFiles, error) {
	l := LogFiles{
		logDir:     logDir,
		stdoutName: processName + "-stdout.log",
		stderrName: processName + "-stderr.log",
	}
	if err := l.create(); err != nil {
		return LogFiles{}, err
	}
	return l, nil
}

// DefaultStopTimeout is the fallback timeout for stopping a process when
// no explicit stop timeout is configured.
const DefaultStopTimeout = 10 * time.Second

// termGracePeriod is the maximum time to wait for a process to exit after
// the graceful termination request before escalating to a forced kill.
// The actual grace period is capped at the overall timeout.
const termGracePeriod = 5 * time.Second

// killDrainTimeout is the hard upper bound for waiting on the done channel
// after the forced kill has been sent (or after the process has already
// exited). A killed process should exit almost immediately; this timeout
// is a safety net against indefinite blocking if cmd.Wait never returns.
const killDrainTimeout = 10 * time.Second

// drainDone reads from the done channel with the given timeout as a hard
// upper bound. Under normal conditions cmd.Wait returns almost immediately
// after the process exits, so this timeout should never fire.
//
// Returns true and the cmd.Wait error if the channel delivered in time,
// or false and a nil error if the timeout elapsed.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// stopWithDone implements the graceful-then-forced shutdown sequence using
// a pre-existing done channel that already has a goroutine calling
// cmd.Wait. This avoids spawning a second cmd.Wait goroutine, which would
// be undefined behavior. The done channel must receive the result of
// exactly one cmd.Wait call.
//
// Shutdown flow:
//  1. Request graceful termination for the whole process tree
//     (SIGTERM to the process group on POSIX, taskkill on Windows).
//  2. Schedule the forced kill via time.AfterFunc after a grace period
//     (canceled if the process exits first).
//  3. Wait for process exit or total timeout.
//
// stopWithDone does not nil cmd or the done channel; the caller clears
// those references after it returns.
//
// Worst-case blocking duration is timeout + killDrainTimeout.
func stopWithDone(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	pid := cmd.Process.Pid

	if err := terminateTree(pid); err != nil {
		// Process (group) already gone; drain the wait goroutine with a
		// hard upper bound to avoid blocking indefinitely.
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after signal failure", name)
		}
		return expectTerminatedExit(waitErr, name)
	}

	// Schedule the forced kill after the grace period. If the process exits
	// before the grace period, killTimer.Stop() cancels the escalation.
	//
	// grace is clamped to timeout so the forced kill always fires before
	// the total timeout expires, giving drainDone a window to collect the
	// exit status rather than hitting the timeout path.
	grace := min(termGracePeriod, timeout)
	killTimer := time.AfterFunc(grace, func() {
		// Killing an already-exited process is harmless; the error is
		// intentionally discarded.
		_ = killTree(pid)
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(timeout)
	defer totalTimer.Stop()

	select {
	case err := <-done:
		return expectTerminatedExit(err, name)
	case <-totalTimer.C:
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out waiting for process to exit after forced kill", name)
		}
		if err := expectTerminatedExit(waitErr, name); err != nil {
			return fmt.Errorf("%s stop timeout: %w", name, err)
		}
		return nil
	}
}

// StartCmd creates log files, sets up stdout/stderr, and starts the command.
// On success, caller owns the LogFiles. On failure, log files are closed
// automatically.
func StartCmd(cmd *exec.Cmd, logDir, processName string) (LogFiles, error) {
	logFiles, err := NewLogFiles(logDir, processName)
	if err != nil {
		return LogFiles{}, fmt.Errorf("create %s logs: %w", processName, err)
	}

	cmd.Stdout = logFiles.stdoutFile
	cmd.Stderr = logFiles.stderrFile

	if err := cmd.Start(); err != nil {
		logFiles.Close()
		return LogFiles{}, fmt.Errorf("start %s process: %w", processName, err)
	}

	return logFiles, nil
}

// KillTree force-kills the process tree rooted at pid. Best-effort: used
// by the orphan reaper against pids recorded by a previous host run. The
// pid must be positive; anything else is rejected before reaching the OS.
func KillTree(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("refusing to kill invalid pid %d", pid)
	}
	return killTree(pid)
}
