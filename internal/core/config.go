package core

import (
	"errors"
	"fmt"
	"time"
)

// SupervisorConfig holds configuration for Supervisor instances.
//
// Concurrency contract: all fields are immutable after construction via
// NewSupervisor. Launch goroutines read every field without
// synchronization, relying on this guarantee.
type SupervisorConfig struct {
	// BinaryName is the logical name of the agent binary, resolved to a
	// candidate path by the Locator.
	BinaryName string

	// BaseDataDir is the directory under which per-launch data directories
	// (log capture, scratch space) are created.
	BaseDataDir string

	// AllowedRoots are the directories an executable candidate must live
	// under to be accepted. Candidates outside every root are rejected
	// before anything is spawned.
	AllowedRoots []string

	// SecretKey is the shared secret exported to every agent. Empty means
	// a fresh random secret is generated per launch.
	SecretKey string

	// Locator turns BinaryName into a candidate executable path.
	Locator BinaryLocator

	// ReadinessInterval is the spacing between /status polls.
	ReadinessInterval time.Duration

	// ReadinessAttempts is the number of /status polls before a launch is
	// declared failed.
	ReadinessAttempts int

	// StopTimeout is the maximum time allowed for an agent's graceful
	// termination sequence before the forced kill path is relied upon.
	StopTimeout time.Duration

	// StateDBPath is the SQLite file recording live launches, consulted at
	// initialization to reap agents orphaned by a crashed host.
	StateDBPath string
}

// Validate checks all SupervisorConfig invariants and returns an error
// describing every violation found. It uses errors.Join to report multiple
// issues at once, allowing callers to fix all problems in a single pass
// rather than playing whack-a-mole with one error at a time.
//
// Validate is called by NewSupervisor (which panics on error, since invalid
// config is a programmer error) and by Initialize (which returns the error,
// providing defense in depth).
func (c SupervisorConfig) Validate() error {
	var errs []error

	if c.BinaryName == "" {
		errs = append(errs, errors.New("binary name must not be empty"))
	}
	if c.BaseDataDir == "" {
		errs = append(errs, errors.New("base data directory must not be empty"))
	}
	if len(c.AllowedRoots) == 0 {
		errs = append(errs, errors.New("at least one allowed root directory is required"))
	}
	if c.Locator == nil {
		errs = append(errs, errors.New("binary locator must not be nil"))
	}
	if c.ReadinessInterval <= 0 {
		errs = append(errs, fmt.Errorf("readiness interval must be greater than 0, got %s", c.ReadinessInterval))
	}
	if c.ReadinessAttempts <= 0 {
		errs = append(errs, fmt.Errorf("readiness attempts must be greater than 0, got %d", c.ReadinessAttempts))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}
	if c.StateDBPath == "" {
		errs = append(errs, errors.New("state database path must not be empty"))
	}

	return errors.Join(errs...)
}
