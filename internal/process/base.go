package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/giantswarm/agentenv/internal/sentinel"
)

// ErrAlreadyStarted is returned when Start is called on a process that is
// already running. Callers must Stop the process before starting it again.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when SetupAndStart is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when SetupAndStart is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyLogDir is returned when SetupAndStart is called with an empty log directory.
const ErrEmptyLogDir = sentinel.Error("log directory must not be empty")

// BaseProcess provides common process lifecycle management for a spawned
// agent. Embed this in package-specific process types to reuse the Stop
// and Close machinery.
//
// BaseProcess is not safe for concurrent use. Callers must serialize
// access to all methods; in practice each BaseProcess is owned by a
// single launch whose handle serializes lifecycle calls.
type BaseProcess struct {
	cmd         *exec.Cmd
	waitDone    <-chan error    // receives cmd.Wait result; started once in SetupAndStart
	exited      <-chan struct{} // closed when the process exits; readable by multiple goroutines
	logFiles    LogFiles
	name        string        // process name for logging and log file names
	log         *slog.Logger  // logger for operational messages
	stopTimeout time.Duration // timeout for auto-stop in Close; zero uses DefaultStopTimeout
}

// NewBaseProcess creates a BaseProcess with the given name, logger, and
// stop timeout. The stopTimeout is used by Close as a safety-net timeout
// when auto-stopping a process that was not explicitly stopped; zero
// falls back to DefaultStopTimeout. If logger is nil, slog.Default() is
// used. Panics if name is empty, since an empty name produces confusing
// error messages throughout the process lifecycle.
func NewBaseProcess(name string, logger *slog.Logger, stopTimeout time.Duration) BaseProcess {
	if name == "" {
		panic("agentenv: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return BaseProcess{name: name, log: logger, stopTimeout: stopTimeout}
}

// PID returns the OS process id, or 0 if the process is not running.
func (b *BaseProcess) PID() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// Stop terminates the process with the given timeout, escalating from the
// graceful termination request to a forced kill if the process outlives
// the grace period. After Stop returns, IsStarted reports false
// regardless of whether the stop succeeded. Safe to call when cmd is nil
// or cmd.Process is nil (Start never called, spawn failed, or Stop
// already called); returns nil immediately in those cases.
func (b *BaseProcess) Stop(timeout time.Duration) error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.cmd = nil
		b.waitDone = nil
		b.exited = nil
		return nil
	}
	pid := b.cmd.Process.Pid
	err := stopWithDone(b.cmd, b.waitDone, timeout, b.name)
	if err != nil {
		b.log.Warn("process stop failed; process may be orphaned",
			"process", b.name, "pid", pid, "error", err)
	}
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
	return err
}

// Close closes log file handles. If the process is still running (Stop
// was not called first), Close logs a warning and stops the process
// automatically to prevent resource leaks. Callers should always call
// Stop before Close; the auto-stop is a safety net, not an intended code
// path.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process.Close called without Stop; stopping automatically",
			"process", b.name)
		timeout := b.stopTimeout
		if timeout <= 0 {
			timeout = DefaultStopTimeout
		}
		if err := b.Stop(timeout); err != nil {
			b.log.Warn("auto-stop during Close failed",
				"process", b.name, "error", err)
		}
	}
	b.logFiles.Close()
}

// StdoutPath returns the path of the captured stdout log. Valid once
// SetupAndStart has succeeded; before that, the path is incomplete.
func (b *BaseProcess) StdoutPath() string {
	return b.logFiles.StdoutPath()
}

// StderrPath returns the path of the captured stderr log. Valid once
// SetupAndStart has succeeded; before that, the path is incomplete.
func (b *BaseProcess) StderrPath() string {
	return b.logFiles.StderrPath()
}

// Logger returns the logger used by this process.
func (b *BaseProcess) Logger() *slog.Logger {
	return b.log
}

// Exited returns a channel that is closed when the process exits. It is
// safe to select on from any number of goroutines. Returns nil if the
// process has not been started or has already been stopped.
func (b *BaseProcess) Exited() <-chan struct{} {
	return b.exited
}

// IsStarted reports whether the process has been started and not yet stopped.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// SetupAndStart assigns the working directory and log capture, then
// starts the command. The cmd must already have its Path, Args, and Env
// set. workDir becomes the child's working directory; log files are
// created under logDir.
//
// A single goroutine calling cmd.Wait is started here so that exactly
// one Wait call is made per process. The resulting channel is consumed
// by Stop; the companion exited channel is a broadcast signal used by
// readiness polling to detect early death.
//
// Returns ErrAlreadyStarted if the process is already running.
func (b *BaseProcess) SetupAndStart(cmd *exec.Cmd, workDir, logDir string) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if logDir == "" {
		return ErrEmptyLogDir
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd.Dir = workDir
	configureSysProcAttr(cmd)

	logFiles, err := StartCmd(cmd, logDir, b.name)
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	b.cmd = cmd
	b.logFiles = logFiles

	// cmd.Wait must be called exactly once per started process. Starting
	// the goroutine here guarantees the invariant and provides the done
	// channel Stop consumes. The exited channel is closed after Wait
	// returns so any number of goroutines can observe process death.
	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	return nil
}
