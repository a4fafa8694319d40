package agentenv

import (
	"context"
	"time"

	"github.com/giantswarm/agentenv/internal/core"
)

// State is the lifecycle state of a launched agent process.
type State = core.ProcessState

// Lifecycle states of a launch. States advance strictly forward;
// StateFailed is reachable from any non-terminal state.
const (
	StateAllocating    = core.StateAllocating
	StateSpawning      = core.StateSpawning
	StateAwaitingReady = core.StateAwaitingReady
	StateReady         = core.StateReady
	StateTerminating   = core.StateTerminating
	StateTerminated    = core.StateTerminated
	StateFailed        = core.StateFailed
)

// BinaryLocator resolves a logical binary name to a candidate executable
// path. The returned path is only a candidate: the supervisor still runs
// it through path security validation before spawning anything.
type BinaryLocator interface {
	Locate(name string) (string, error)
}

// Supervisor launches, health-checks, and terminates agent processes.
//
// Callers must follow this lifecycle ordering:
//
//	NewSupervisor → Initialize → Launch/Terminate (repeatable) → Shutdown
//
// Initialize must be called before Launch. Shutdown is safe to call at
// any point, including before Initialize.
type Supervisor interface {
	// Initialize performs the I/O-bearing part of construction: it
	// creates the base data directory, opens the launch store, and reaps
	// agent processes orphaned by a previous host run. Safe to call
	// multiple times; after a success, subsequent calls return nil.
	Initialize(ctx context.Context) error

	// Launch starts one agent process: path validation, port allocation,
	// environment composition, spawn, readiness polling. On success the
	// returned handle is Ready and registered for shutdown-time
	// termination.
	//
	// Returns ErrNotInitialized before Initialize and ErrShuttingDown
	// after Shutdown. Launch failures surface as ErrPathSecurity,
	// ErrPortAllocation, ErrSpawn, or ErrReadinessTimeout; see errors.go.
	Launch(ctx context.Context, req LaunchRequest) (Handle, error)

	// Terminate tears down the agent behind h. Fire and forget:
	// termination failures are logged, never returned, and calling
	// Terminate repeatedly (or concurrently) is safe.
	Terminate(h Handle)

	// Shutdown terminates every registered agent best-effort in parallel
	// and releases supervisor resources. Safe to call multiple times.
	Shutdown() error
}

// LaunchRequest carries the per-launch inputs of a Launch call. Both
// fields are optional; the zero value launches in the user home directory
// with no extra environment.
type LaunchRequest struct {
	// WorkingDir is the candidate working directory for the agent. Empty
	// or invalid (unstattable, symlink, not a directory) degrades to the
	// user home directory; shell metacharacters reject the launch with
	// ErrPathSecurity.
	WorkingDir string

	// EnvOverrides are caller-supplied environment variables, applied
	// with the highest precedence over inherited and generated ones.
	EnvOverrides map[string]string
}

// Handle is the caller's view of one launched agent process. The host
// holds it to address the agent (port, pid) and to terminate it; the OS
// process itself stays owned by the supervisor.
type Handle interface {
	// ID returns the launch's unique identifier.
	ID() string

	// Port returns the loopback port the agent serves on.
	Port() int

	// PID returns the OS process id of the agent.
	PID() int

	// WorkingDir returns the validated absolute working directory.
	WorkingDir() string

	// FallbackUsed reports whether the requested working directory was
	// replaced by the home directory during validation.
	FallbackUsed() bool

	// StartedAt returns the time the launch began.
	StartedAt() time.Time

	// State returns the current lifecycle state.
	State() State

	// StdoutPath and StderrPath return the files capturing the agent's
	// output, for display in failure diagnostics.
	StdoutPath() string
	StderrPath() string
}
