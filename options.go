package agentenv

import (
	"fmt"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("agentenv: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("agentenv: %s must not be empty", name))
	}
}

// Option configures a Supervisor during construction via NewSupervisor.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (empty paths,
// non-positive durations). These panics are intentional: option values are
// typically compile-time constants or package-level variables, so an
// invalid value indicates a programmer error rather than a runtime
// condition. The pattern mirrors [regexp.MustCompile] — fail fast during
// initialization instead of returning errors that would be universally
// fatal anyway.
type Option func(*supervisorConfig)

// WithBinaryName sets the logical name of the agent binary the locator
// resolves. Default: DefaultBinaryName.
// Panics if name is empty.
func WithBinaryName(name string) Option {
	requireNonEmpty("binary name", name)
	return func(c *supervisorConfig) {
		c.BinaryName = name
	}
}

// WithBaseDataDir sets the base directory for per-launch data (log
// capture, state database). Useful where multiple applications use
// agentenv simultaneously and need isolated data directories.
// If not set, defaults to a directory under the system temp directory.
// Panics if dir is empty.
func WithBaseDataDir(dir string) Option {
	requireNonEmpty("base data directory", dir)
	return func(c *supervisorConfig) {
		c.BaseDataDir = dir
	}
}

// WithInstallDir sets the host application's install directory, searched
// by the default locator and accepted as an allowed root for executable
// validation. Ignored when WithLocator is used.
// Panics if dir is empty.
func WithInstallDir(dir string) Option {
	requireNonEmpty("install directory", dir)
	return func(c *supervisorConfig) {
		c.installDir = dir
	}
}

// WithResourcesDir sets the packaged-resources directory (where binaries
// ship with the host application), searched by the default locator and
// accepted as an allowed root for executable validation. Ignored when
// WithLocator is used.
// Panics if dir is empty.
func WithResourcesDir(dir string) Option {
	requireNonEmpty("resources directory", dir)
	return func(c *supervisorConfig) {
		c.resourcesDir = dir
	}
}

// WithAllowedRoots replaces the allowed root directories an executable
// candidate must live under. When not set, the roots are derived from the
// default locator's search directories.
// Panics if no root is given or any root is empty.
func WithAllowedRoots(roots ...string) Option {
	if len(roots) == 0 {
		panic("agentenv: at least one allowed root is required")
	}
	for _, root := range roots {
		requireNonEmpty("allowed root", root)
	}
	return func(c *supervisorConfig) {
		c.AllowedRoots = append([]string(nil), roots...)
	}
}

// WithLocator replaces the binary locator used to turn the binary name
// into a candidate executable path. The candidate is still validated
// against the allowed roots; combine with WithAllowedRoots when the
// custom locator searches outside the default roots.
// Panics if l is nil.
func WithLocator(l BinaryLocator) Option {
	if l == nil {
		panic("agentenv: locator must not be nil")
	}
	return func(c *supervisorConfig) {
		c.Locator = l
	}
}

// WithSecretKey sets a fixed shared secret exported to every agent. When
// not set, a fresh random secret is generated per launch.
// Panics if key is empty.
func WithSecretKey(key string) Option {
	requireNonEmpty("secret key", key)
	return func(c *supervisorConfig) {
		c.SecretKey = key
	}
}

// WithReadinessInterval sets the spacing between /status polls.
// Default: DefaultReadinessInterval.
// Panics if d <= 0.
func WithReadinessInterval(d time.Duration) Option {
	requirePositive("readiness interval", d)
	return func(c *supervisorConfig) {
		c.ReadinessInterval = d
	}
}

// WithReadinessAttempts sets the number of /status polls before a launch
// is declared failed. Default: DefaultReadinessAttempts.
// Panics if n <= 0.
func WithReadinessAttempts(n int) Option {
	requirePositive("readiness attempts", n)
	return func(c *supervisorConfig) {
		c.ReadinessAttempts = n
	}
}

// WithExtendedReadiness selects the extended polling budget
// (ExtendedReadinessAttempts). Use it when the agent is configured with
// slow-starting subsystems that push startup past the baseline budget.
func WithExtendedReadiness() Option {
	return func(c *supervisorConfig) {
		c.ReadinessAttempts = ExtendedReadinessAttempts
	}
}

// WithStopTimeout sets the maximum time allowed for an agent's graceful
// termination sequence. Default: DefaultStopTimeout.
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *supervisorConfig) {
		c.StopTimeout = d
	}
}

// WithStateDB sets the path of the launch store database. Default: a
// file named DefaultStateDBName inside the base data directory.
// Panics if path is empty.
func WithStateDB(path string) Option {
	requireNonEmpty("state database path", path)
	return func(c *supervisorConfig) {
		c.StateDBPath = path
	}
}
