package agentenv

import "time"

// Default configuration values for NewSupervisor.
// These constants are exported so callers can reference the defaults when
// building custom configurations relative to them (e.g.,
// 2 * DefaultStopTimeout).
const (
	// DefaultBinaryName is the logical name of the agent binary resolved
	// by the locator.
	DefaultBinaryName = "goosed"

	// DefaultBaseDataDirName is the directory name under the system temp
	// directory where per-launch data (log capture, state database) is
	// stored. The full path is computed as
	// filepath.Join(os.TempDir(), DefaultBaseDataDirName).
	DefaultBaseDataDirName = "agentenv"

	// DefaultStateDBName is the file name of the launch store inside the
	// base data directory. The store records live launches so a restarted
	// host can reap agents orphaned by a crash.
	DefaultStateDBName = "launches.db"

	// DefaultReadinessInterval is the spacing between /status polls.
	DefaultReadinessInterval = 500 * time.Millisecond

	// DefaultReadinessAttempts is the baseline polling budget, about 8
	// seconds at the default interval.
	DefaultReadinessAttempts = 16

	// ExtendedReadinessAttempts is the polling budget selected by
	// WithExtendedReadiness, about 20 seconds at the default interval.
	// Use it when the agent is configured with slow-starting subsystems
	// (e.g., its scheduler) that push startup past the baseline budget.
	ExtendedReadinessAttempts = 40

	// DefaultStopTimeout is the maximum time allowed for an agent's
	// graceful termination sequence before relying on the forced kill.
	DefaultStopTimeout = 10 * time.Second
)
