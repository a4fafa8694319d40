package agentenv

import "github.com/giantswarm/agentenv/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrShuttingDown is returned by Launch when the supervisor is shutting down.
	ErrShuttingDown = core.ErrShuttingDown

	// ErrNotInitialized is returned by Launch when Initialize has not been called.
	ErrNotInitialized = core.ErrNotInitialized

	// ErrPortAllocation is returned by Launch when no free loopback port
	// could be allocated. Nothing was spawned.
	ErrPortAllocation = core.ErrPortAllocation

	// ErrPathSecurity is returned by Launch when the working directory or
	// the executable candidate fails security validation (traversal or
	// shell-injection patterns, path outside the allowed roots, not a
	// regular file). Nothing was spawned. The concrete error is a
	// *SecurityError carrying the rejected candidate.
	ErrPathSecurity = core.ErrPathSecurity

	// ErrSpawn is returned by Launch when the OS refused to create the
	// agent process. Nothing exists to terminate.
	ErrSpawn = core.ErrSpawn

	// ErrReadinessTimeout is returned by Launch when the agent process
	// was created but never answered its health check within the polling
	// budget. The process receives a best-effort termination before the
	// error surfaces.
	ErrReadinessTimeout = core.ErrReadinessTimeout

	// ErrBinaryNotFound is returned by the default locator when no
	// candidate for the configured binary name exists in any search
	// location.
	ErrBinaryNotFound = core.ErrBinaryNotFound
)

// SecurityError is the concrete error behind ErrPathSecurity. It retains
// the rejected candidate path for audit logging; the candidate is never
// executed.
type SecurityError = core.SecurityError
