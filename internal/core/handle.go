package core

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Handle represents one launched agent process. It carries the identity of
// the launch (id, port, pid, working directory) and owns the state machine
// for that process.
//
// Synchronization strategy: identity fields are written only by the launch
// goroutine before the handle is shared, and are read-only thereafter. The
// state is an atomic enum advanced by CAS, so concurrent Terminate calls
// and the launch goroutine agree on exactly one transition per edge.
type Handle struct {
	id         string
	port       int
	pid        int
	workingDir string
	fallback   bool
	binaryPath string
	startedAt  time.Time
	state      atomic.Uint32 // ProcessState; zero value is StateAllocating
	proc       launchedProcess

	log *slog.Logger
}

// ID returns the launch's unique identifier.
func (h *Handle) ID() string { return h.id }

// Port returns the loopback port assigned to the agent.
func (h *Handle) Port() int { return h.port }

// PID returns the OS process id of the agent, or 0 before spawn.
func (h *Handle) PID() int { return h.pid }

// WorkingDir returns the validated working directory of the agent.
func (h *Handle) WorkingDir() string { return h.workingDir }

// FallbackUsed reports whether the requested working directory was
// replaced by the home directory during validation.
func (h *Handle) FallbackUsed() bool { return h.fallback }

// BinaryPath returns the validated executable path the agent was spawned from.
func (h *Handle) BinaryPath() string { return h.binaryPath }

// StartedAt returns the time the launch began.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// State returns the current lifecycle state.
func (h *Handle) State() ProcessState {
	return ProcessState(h.state.Load())
}

// StdoutPath returns the path of the agent's captured stdout, or "" before spawn.
func (h *Handle) StdoutPath() string {
	if h.proc == nil {
		return ""
	}
	return h.proc.StdoutPath()
}

// StderrPath returns the path of the agent's captured stderr, or "" before spawn.
func (h *Handle) StderrPath() string {
	if h.proc == nil {
		return ""
	}
	return h.proc.StderrPath()
}

// advance performs the from→to transition. Returns false when the handle
// is not in the from state, which means another goroutine already moved it
// (e.g., a concurrent Terminate).
func (h *Handle) advance(from, to ProcessState) bool {
	return h.state.CompareAndSwap(uint32(from), uint32(to))
}

// fail moves the handle to StateFailed from whatever non-terminal state it
// is in. A handle already terminal keeps its state.
func (h *Handle) fail() {
	for {
		s := h.State()
		if s.IsTerminal() {
			return
		}
		if h.advance(s, StateFailed) {
			return
		}
	}
}

// beginTerminate claims the termination edge. Exactly one caller wins per
// handle; losers see false and must not touch the process. Termination can
// start from any non-terminal state except Terminating (already claimed).
func (h *Handle) beginTerminate() bool {
	for {
		s := h.State()
		if s.IsTerminal() || s == StateTerminating {
			return false
		}
		if h.advance(s, StateTerminating) {
			return true
		}
	}
}
